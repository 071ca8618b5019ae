package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fleetrisk/db"
	"fleetrisk/monitoring"
	"fleetrisk/risk"
	"go.uber.org/zap"
)

const (
	rootMessage = "FleetFlow AI Service Running"

	defaultPredictionsLimit = 20
	maxPredictionsLimit     = 500
)

// Dependencies 处理器依赖；除 Predictor 外均可为空
type Dependencies struct {
	Predictor *risk.Predictor
	Store     *db.Store
	Recorder  *db.Recorder
	Hub       *monitoring.Hub
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
}

type PredictResponse struct {
	RiskLevel string `json:"riskLevel"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	Dependencies
}

// RegisterHandlers 注册所有路由
func RegisterHandlers(mux *http.ServeMux, deps Dependencies) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &handlers{Dependencies: deps}

	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /predict-driver-risk", h.handlePredict)
	mux.HandleFunc("GET /predictions", h.handlePredictions)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}
	if deps.Hub != nil {
		mux.Handle("GET /ws/predictions", deps.Hub)
	}
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	req, err := risk.DecodeRequest(r.Body)
	if err != nil {
		h.observeError("validation")
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		var verr *risk.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	features := req.Features()
	start := time.Now()
	prediction, err := h.Predictor.Predict(r.Context(), features)
	elapsed := time.Since(start)
	if err != nil {
		switch {
		case errors.Is(err, risk.ErrUnknownClass):
			h.observeError("unknown_class")
			h.Logger.Error("classifier produced an unmapped class",
				zap.String("request_id", requestID),
				zap.Float64s("features", features.Slice()),
				zap.Error(err))
			respondError(w, http.StatusInternalServerError, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			h.observeError("cancelled")
			respondError(w, http.StatusServiceUnavailable, "request cancelled")
		default:
			h.observeError("classifier")
			h.Logger.Error("prediction failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	level := prediction.Level.String()
	if h.Metrics != nil {
		h.Metrics.ObservePrediction(level, prediction.Cached, elapsed)
	}
	if h.Recorder != nil {
		h.Recorder.Record(db.PredictionRecord{
			SafetyScore:    features[0],
			TripsCompleted: features[1],
			FatigueLevel:   features[2],
			Class:          prediction.Class,
			RiskLevel:      level,
			Cached:         prediction.Cached,
			Latency:        elapsed.Microseconds(),
			RequestID:      requestID,
			CreatedAt:      time.Now().UTC(),
		})
	}
	if h.Hub != nil {
		h.Hub.PublishPrediction(monitoring.PredictionMessage{
			SafetyScore:    features[0],
			TripsCompleted: features[1],
			FatigueLevel:   features[2],
			RiskLevel:      level,
			Cached:         prediction.Cached,
			RequestID:      requestID,
		})
	}
	h.Logger.Debug("prediction",
		zap.String("request_id", requestID),
		zap.Float64s("features", features.Slice()),
		zap.String("risk_level", level),
		zap.Bool("cached", prediction.Cached))

	respondJSON(w, http.StatusOK, PredictResponse{RiskLevel: level})
}

func (h *handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "prediction audit store is disabled")
		return
	}

	limit := defaultPredictionsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(l, maxPredictionsLimit)
	}

	records, err := h.Store.RecentPredictions(limit)
	if err != nil {
		h.Logger.Error("failed to query predictions", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to query predictions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}

func (h *handlers) observeError(kind string) {
	if h.Metrics != nil {
		h.Metrics.ObserveError(kind)
	}
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fleetrisk/ml"
	"fleetrisk/monitoring"
	"fleetrisk/risk"
	"go.uber.org/zap"
)

type fakeModel struct {
	class int
	err   error
}

func (f *fakeModel) Classify(features []float64) (int, error) {
	return f.class, f.err
}

func fixturePredictor(t *testing.T) *risk.Predictor {
	t.Helper()
	features, labels, err := ml.DefaultDataset().Matrix()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	model := ml.NewDecisionTree(0)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predictor, err := risk.NewPredictor(model, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return predictor
}

func postPredict(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict-driver-risk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeRiskLevel(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var payload PredictResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return payload.RiskLevel
}

func TestHandlePredictTrainingSamples(t *testing.T) {
	handler := newTestHandler(t, Dependencies{})

	cases := map[string]string{
		`{"safetyScore": 95, "tripsCompleted": 200, "fatigueLevel": 1}`: "LOW",
		`{"safetyScore": 70, "tripsCompleted": 120, "fatigueLevel": 3}`: "MEDIUM",
		`{"safetyScore": 40, "tripsCompleted": 30, "fatigueLevel": 6}`:  "HIGH",
	}
	for body, expected := range cases {
		rr := postPredict(t, handler, body)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", body, rr.Code, rr.Body.String())
		}
		if got := decodeRiskLevel(t, rr); got != expected {
			t.Fatalf("%s: expected %s, got %s", body, expected, got)
		}
	}
}

func TestHandlePredictDefaults(t *testing.T) {
	handler := newTestHandler(t, Dependencies{})

	for _, body := range []string{"", "{}", `{"tripsCompleted": null}`} {
		rr := postPredict(t, handler, body)
		if rr.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d: %s", body, rr.Code, rr.Body.String())
		}
		if got := decodeRiskLevel(t, rr); got != "LOW" {
			t.Fatalf("%q: expected LOW for defaults, got %s", body, got)
		}
	}
}

func TestHandlePredictAlwaysReturnsKnownLabel(t *testing.T) {
	handler := newTestHandler(t, Dependencies{})
	known := map[string]bool{"LOW": true, "MEDIUM": true, "HIGH": true}

	bodies := []string{
		`{"safetyScore": 0, "tripsCompleted": 0, "fatigueLevel": 0}`,
		`{"safetyScore": -10, "tripsCompleted": 5000, "fatigueLevel": 99}`,
		`{"safetyScore": 55.5, "tripsCompleted": 77, "fatigueLevel": 2.5}`,
		`{"safetyScore": 1e12, "tripsCompleted": 1, "fatigueLevel": 1}`,
	}
	for _, body := range bodies {
		rr := postPredict(t, handler, body)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", body, rr.Code)
		}
		if got := decodeRiskLevel(t, rr); !known[got] {
			t.Fatalf("%s: unexpected label %q", body, got)
		}
	}
}

func TestHandlePredictIdempotent(t *testing.T) {
	handler := newTestHandler(t, Dependencies{})
	body := `{"safetyScore": 60, "tripsCompleted": 80, "fatigueLevel": 4}`

	first := postPredict(t, handler, body)
	second := postPredict(t, handler, body)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical bodies, got %q and %q", first.Body.String(), second.Body.String())
	}
}

func TestHandlePredictRejectsWrongTypes(t *testing.T) {
	metrics := monitoring.NewMetrics()
	handler := newTestHandler(t, Dependencies{Metrics: metrics})

	for _, body := range []string{
		`{"safetyScore": "high"}`,
		`{"fatigueLevel": false}`,
		`[95, 200, 1]`,
		`{not json`,
	} {
		rr := postPredict(t, handler, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rr.Code)
		}
		var payload map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if payload["error"] == "" {
			t.Fatalf("%s: expected error message", body)
		}
	}
}

func TestHandlePredictBodyTooLarge(t *testing.T) {
	config := DefaultServerConfig()
	config.MaxBodyBytes = 16
	handler := NewHandler(config, Dependencies{Predictor: fixturePredictor(t)})

	rr := postPredict(t, handler, `{"safetyScore": 95, "tripsCompleted": 200, "fatigueLevel": 1}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestHandlePredictUnknownClass(t *testing.T) {
	predictor, err := risk.NewPredictor(&fakeModel{class: 7}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	handler := newTestHandler(t, Dependencies{Predictor: predictor, Logger: zap.NewNop()})

	rr := postPredict(t, handler, `{}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !strings.Contains(payload["error"], "unknown class 7") {
		t.Fatalf("expected descriptive error, got %q", payload["error"])
	}
}

func TestHandlePredictPublishesMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	handler := newTestHandler(t, Dependencies{Metrics: metrics})

	postPredict(t, handler, `{"safetyScore": 40, "tripsCompleted": 30, "fatigueLevel": 6}`)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `fleetrisk_predictions_total{level="HIGH"} 1`) {
		t.Fatalf("metrics missing HIGH prediction:\n%s", rr.Body.String())
	}
}

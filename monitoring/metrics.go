package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 预测服务指标
type Metrics struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     prometheus.Histogram
	cache       *prometheus.CounterVec
	requests    *prometheus.CounterVec
}

// NewMetrics 创建指标收集器，使用独立的registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetrisk_predictions_total",
			Help: "Driver risk predictions by risk level.",
		}, []string{"level"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetrisk_prediction_errors_total",
			Help: "Failed prediction requests by kind.",
		}, []string{"kind"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetrisk_prediction_duration_seconds",
			Help:    "Time spent classifying a request.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetrisk_prediction_cache_total",
			Help: "Prediction cache lookups by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetrisk_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		m.predictions,
		m.errors,
		m.latency,
		m.cache,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePrediction 记录一次成功预测
func (m *Metrics) ObservePrediction(level string, cached bool, duration time.Duration) {
	m.predictions.WithLabelValues(level).Inc()
	m.latency.Observe(duration.Seconds())
	if cached {
		m.cache.WithLabelValues("hit").Inc()
	} else {
		m.cache.WithLabelValues("miss").Inc()
	}
}

// ObserveError 记录一次失败预测，kind 如 validation / classifier
func (m *Metrics) ObserveError(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}

// InstrumentHandler 统计所有HTTP请求
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.requests, next)
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry 用于测试读取指标
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

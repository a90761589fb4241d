package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	errors          *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	operationTimes  *prometheus.HistogramVec
	operationErrors *prometheus.CounterVec

	systemStartTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devflow",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route.",
		}, []string{"route"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devflow",
			Name:      "http_errors_total",
			Help:      "HTTP responses with status >= 400, by route.",
		}, []string{"route"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devflow",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		operationTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devflow",
			Name:      "operation_duration_seconds",
			Help:      "Latency of core operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devflow",
			Name:      "operation_errors_total",
			Help:      "Failed core operations.",
		}, []string{"operation"}),
		systemStartTime: time.Now(),
	}

	mc.registry.MustRegister(
		mc.requests,
		mc.errors,
		mc.requestLatency,
		mc.operationTimes,
		mc.operationErrors,
		prometheus.NewGoCollector(),
	)
	return mc
}

func (mc *MetricsCollector) IncrementRequests(route string) {
	mc.requests.WithLabelValues(route).Inc()
}

func (mc *MetricsCollector) IncrementErrors(route string) {
	mc.errors.WithLabelValues(route).Inc()
}

func (mc *MetricsCollector) ObserveRequest(route string, duration time.Duration) {
	mc.requestLatency.WithLabelValues(route).Observe(duration.Seconds())
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.operationTimes.WithLabelValues(operationName).Observe(duration.Seconds())
}

func (mc *MetricsCollector) IncrementOperationErrors(operationName string) {
	mc.operationErrors.WithLabelValues(operationName).Inc()
}

func (mc *MetricsCollector) Uptime() time.Duration {
	return time.Since(mc.systemStartTime)
}

// Handler exposes the collector's registry in the Prometheus text format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// Registry is used by tests to gather metric families directly.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

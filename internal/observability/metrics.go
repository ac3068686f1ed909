package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	requestsTotal       *prometheus.CounterVec
	latencySeconds      *prometheus.HistogramVec
	errorsTotal         *prometheus.CounterVec
	realtimeConnections prometheus.Gauge
	eventsPublished     *prometheus.CounterVec
	auditWriteFailures  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhub_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		realtimeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskhub_realtime_connections",
			Help: "Number of live websocket connections.",
		})

		eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_events_published_total",
			Help: "Total number of realtime events published, by event name.",
		}, []string{"event"})

		auditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_audit_write_failures_total",
			Help: "Audit appends that failed after the triggering mutation had committed.",
		})

		prometheus.MustRegister(requestsTotal, latencySeconds, errorsTotal,
			realtimeConnections, eventsPublished, auditWriteFailures)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// RealtimeConnections exposes the live websocket connection gauge.
func RealtimeConnections() prometheus.Gauge {
	RegisterMetrics()
	return realtimeConnections
}

// EventsPublished exposes the realtime event counter.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublished
}

// AuditWriteFailures exposes the counter that makes the audit-after-mutation
// gap observable to operators.
func AuditWriteFailures() prometheus.Counter {
	RegisterMetrics()
	return auditWriteFailures
}

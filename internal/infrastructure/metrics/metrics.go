package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics defines our Prometheus metrics
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	EventMutations  *prometheus.CounterVec
	AuditLogWrites  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RequestCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventtrail_http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventtrail_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		EventMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventtrail_event_mutations_total",
			Help: "Event create/update/delete operations by outcome",
		}, []string{"operation", "outcome"}),

		AuditLogWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventtrail_audit_log_writes_total",
			Help: "EventLog entries persisted",
		}),
	}
}

// Handler exposes the default registry, which promauto registers into.
func Handler() http.Handler {
	return promhttp.Handler()
}

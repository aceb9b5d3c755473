package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several routers can coexist in one process (tests).
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	LeadsSubmitted       *prometheus.CounterVec
	LeadStatusUpdates    *prometheus.CounterVec
	LeadsDeleted         prometheus.Counter
	ExportsCreated       *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	FeedConnections      prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LeadsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_submitted_total",
				Help: "Lead submissions by outcome",
			},
			[]string{"outcome"}, // created, duplicate, invalid, error
		),
		LeadStatusUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_status_updates_total",
				Help: "Lead status changes by target status",
			},
			[]string{"status"},
		),
		LeadsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "leads_deleted_total",
			Help: "Total number of deleted leads",
		}),
		ExportsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_exports_total",
				Help: "Lead exports by format",
			},
			[]string{"format"},
		),
		NotificationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_failures_total",
				Help: "Failed new-lead notifications by channel",
			},
			[]string{"channel"},
		),
		FeedConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "admin_feed_connections",
			Help: "Open admin live feed connections",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// The helpers below are nil-safe so callers can run without metrics.

func (m *Metrics) LeadSubmitted(outcome string) {
	if m == nil {
		return
	}
	m.LeadsSubmitted.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StatusUpdated(status string) {
	if m == nil {
		return
	}
	m.LeadStatusUpdates.WithLabelValues(status).Inc()
}

func (m *Metrics) LeadDeleted() {
	if m == nil {
		return
	}
	m.LeadsDeleted.Inc()
}

func (m *Metrics) ExportCreated(format string) {
	if m == nil {
		return
	}
	m.ExportsCreated.WithLabelValues(format).Inc()
}

func (m *Metrics) NotificationFailed(channel string) {
	if m == nil {
		return
	}
	m.NotificationFailures.WithLabelValues(channel).Inc()
}

func (m *Metrics) FeedConnected() {
	if m == nil {
		return
	}
	m.FeedConnections.Inc()
}

func (m *Metrics) FeedDisconnected() {
	if m == nil {
		return
	}
	m.FeedConnections.Dec()
}

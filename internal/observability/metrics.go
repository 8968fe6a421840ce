// Package observability wires Prometheus metrics for the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Calendar-interop metrics
	ICSDownloads   prometheus.Counter
	FeedDownloads  prometheus.Counter
	EventsCreated  prometheus.Counter
	EventsImported prometheus.Counter

	// Kiosk snapshot metrics
	SnapshotRefreshes       *prometheus.CounterVec
	SnapshotRefreshDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics on the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP request handling",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ICSDownloads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ics_downloads_total",
				Help: "Total number of per-event calendar file downloads",
			},
		),
		FeedDownloads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "feed_downloads_total",
				Help: "Total number of full feed downloads",
			},
		),
		EventsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "events_created_total",
				Help: "Total number of events created via the API",
			},
		),
		EventsImported: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "events_imported_total",
				Help: "Total number of events created via feed import",
			},
		),
		SnapshotRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_refreshes_total",
				Help: "Total number of kiosk snapshot refreshes",
			},
			[]string{"status"},
		),
		SnapshotRefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snapshot_refresh_duration_seconds",
				Help:    "Duration of kiosk snapshot refreshes",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// IncRequest increments the request counter for one handled request.
func (m *Metrics) IncRequest(route, method, status string) {
	m.RequestsTotal.WithLabelValues(route, method, status).Inc()
}

// ObserveRequestDuration records the handling duration for a route.
func (m *Metrics) ObserveRequestDuration(route string, seconds float64) {
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// IncSnapshotRefresh records one snapshot refresh outcome.
func (m *Metrics) IncSnapshotRefresh(status string) {
	m.SnapshotRefreshes.WithLabelValues(status).Inc()
}

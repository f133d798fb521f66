// Package telemetry provides the ambient observability stack shared by
// the engine and mcp packages: Prometheus metrics and OpenTelemetry
// tracing, both nil-safe so a caller who never configures telemetry pays
// no cost and needs no nil checks of its own.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments recorded across a request's
// lifecycle. A nil *Metrics is valid: every method on it is a no-op, so
// callers can hold a possibly-nil Metrics field without branching.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveConns      prometheus.Gauge
	ActiveSessions   prometheus.Gauge
	SSEEventsEmitted *prometheus.CounterVec
}

// NewMetrics registers and returns the full instrument set against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reactor",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "reactor",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds, from dispatch to handler completion",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ActiveConns: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "reactor",
				Name:      "active_connections",
				Help:      "Number of currently open TCP connections",
			},
		),
		ActiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "reactor",
				Name:      "active_sessions",
				Help:      "Number of live MCP sessions",
			},
		),
		SSEEventsEmitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reactor",
				Name:      "sse_events_emitted_total",
				Help:      "Total SSE events pushed to subscribers",
			},
			[]string{"session_kind"},
		),
	}
}

// ObserveRequest records one completed request's method, status and
// duration. No-op on a nil Metrics.
func (m *Metrics) ObserveRequest(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(seconds)
}

// ConnOpened/ConnClosed track the active-connections gauge.
func (m *Metrics) ConnOpened() {
	if m != nil {
		m.ActiveConns.Inc()
	}
}

func (m *Metrics) ConnClosed() {
	if m != nil {
		m.ActiveConns.Dec()
	}
}

// SessionCreated/SessionEnded track the active-sessions gauge.
func (m *Metrics) SessionCreated() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionEnded() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

// EventEmitted records one SSE push, labeled by kind (e.g. "replay" or
// "live").
func (m *Metrics) EventEmitted(kind string) {
	if m == nil {
		return
	}
	m.SSEEventsEmitted.WithLabelValues(kind).Inc()
}

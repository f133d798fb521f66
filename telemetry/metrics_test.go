package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m.RequestsTotal == nil {
		t.Error("RequestsTotal not initialized")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration not initialized")
	}
	if m.ActiveConns == nil {
		t.Error("ActiveConns not initialized")
	}
	if m.ActiveSessions == nil {
		t.Error("ActiveSessions not initialized")
	}
	if m.SSEEventsEmitted == nil {
		t.Error("SSEEventsEmitted not initialized")
	}
}

func TestMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRequest("POST", "200", 0.05)
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "200")); got != 1 {
		t.Errorf("RequestsTotal = %v, want 1", got)
	}

	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	if got := testutil.ToFloat64(m.ActiveConns); got != 1 {
		t.Errorf("ActiveConns = %v, want 1", got)
	}

	m.SessionCreated()
	if got := testutil.ToFloat64(m.ActiveSessions); got != 1 {
		t.Errorf("ActiveSessions = %v, want 1", got)
	}
	m.SessionEnded()
	if got := testutil.ToFloat64(m.ActiveSessions); got != 0 {
		t.Errorf("ActiveSessions = %v, want 0", got)
	}

	m.EventEmitted("live")
	if got := testutil.ToFloat64(m.SSEEventsEmitted.WithLabelValues("live")); got != 1 {
		t.Errorf("SSEEventsEmitted = %v, want 1", got)
	}
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "200", 0.01)
	m.ConnOpened()
	m.ConnClosed()
	m.SessionCreated()
	m.SessionEnded()
	m.EventEmitted("replay")
}

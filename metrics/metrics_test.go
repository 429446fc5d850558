// ABOUTME: Tests for the Prometheus recorder: counters, gauges, nil safety, and the HTTP handler.
package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()
	r.EventReceived("agent")
	r.EventReceived("agent")
	r.EventReceived("none")
	r.LineDropped()
	r.RunCreated(true)
	r.RunCreated(false)

	if got := testutil.ToFloat64(r.eventsTotal.WithLabelValues("agent")); got != 2 {
		t.Errorf("agent events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.droppedTotal); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.runsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
}

func TestRecorder_Transition(t *testing.T) {
	r := New()
	r.Transition("", "connecting")
	r.Transition("connecting", "open")
	if got := testutil.ToFloat64(r.connections.WithLabelValues("connecting")); got != 0 {
		t.Errorf("connecting = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.connections.WithLabelValues("open")); got != 1 {
		t.Errorf("open = %v, want 1", got)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.EventReceived("agent")
	r.LineDropped()
	r.RunCreated(true)
	r.Transition("a", "b")
	if r.Registry() != nil {
		t.Error("nil recorder should have nil registry")
	}
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.LineDropped()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "crystalens_stream_dropped_total 1") {
		t.Errorf("metrics output missing dropped counter:\n%s", rec.Body.String())
	}
}

func TestRecorder_ClosedLeavesGauge(t *testing.T) {
	r := New()
	for i := 0; i < 3; i++ {
		r.Transition("", "connecting")
		r.Transition("connecting", "open")
		r.Transition("open", "closed")
	}
	r.Transition("", "connecting")
	r.Transition("connecting", "closed")

	if got := testutil.ToFloat64(r.connections.WithLabelValues("closed")); got != 0 {
		t.Errorf("closed gauge = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.connections.WithLabelValues("open")); got != 0 {
		t.Errorf("open = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.connections.WithLabelValues("connecting")); got != 0 {
		t.Errorf("connecting = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.closedTotal); got != 4 {
		t.Errorf("closed_total = %v, want 4", got)
	}
}

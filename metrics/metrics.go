// ABOUTME: Prometheus collectors for stream traffic and run creation, on a private registry.
// ABOUTME: A nil *Recorder is valid and records nothing, so packages can take it optionally.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crystalens"

// closedState is the terminal subscriber state. Subscribers leave the
// connections gauge when they reach it and are counted in closed_total.
const closedState = "closed"

// Recorder owns the console's collectors.
type Recorder struct {
	registry *prometheus.Registry

	eventsTotal  *prometheus.CounterVec
	droppedTotal prometheus.Counter
	runsTotal    *prometheus.CounterVec
	connections  *prometheus.GaugeVec
	closedTotal  prometheus.Counter
}

// New registers all collectors on a fresh registry, plus the Go and process
// collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Events received on run streams, by display category.",
		}, []string{"category"}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "dropped_total",
			Help:      "Malformed stream lines that were dropped.",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_created_total",
			Help:      "Run creation requests, by outcome.",
		}, []string{"outcome"}),
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connections",
			Help:      "Stream subscribers currently in each state.",
		}, []string{"state"}),
		closedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "closed_total",
			Help:      "Stream subscribers that reached the closed state.",
		}),
	}
	reg.MustRegister(
		r.eventsTotal,
		r.droppedTotal,
		r.runsTotal,
		r.connections,
		r.closedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the underlying registry (used by tests).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// EventReceived counts one decoded event under its category label.
func (r *Recorder) EventReceived(category string) {
	if r == nil {
		return
	}
	r.eventsTotal.WithLabelValues(category).Inc()
}

// LineDropped counts one malformed stream line.
func (r *Recorder) LineDropped() {
	if r == nil {
		return
	}
	r.droppedTotal.Inc()
}

// RunCreated counts a run creation attempt; ok=false records a failure.
func (r *Recorder) RunCreated(ok bool) {
	if r == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.runsTotal.WithLabelValues(outcome).Inc()
}

// Transition moves one subscriber from state from to state to. An empty
// from only increments to. Reaching closed removes the subscriber from the
// gauge and counts it in closed_total instead.
func (r *Recorder) Transition(from, to string) {
	if r == nil {
		return
	}
	if from != "" {
		r.connections.WithLabelValues(from).Dec()
	}
	if to == closedState {
		r.closedTotal.Inc()
		return
	}
	r.connections.WithLabelValues(to).Inc()
}

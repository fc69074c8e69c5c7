// Package metrics exposes prometheus counters for lookups, replays and intents.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeOK       = "ok"
	OutcomeAborted  = "aborted"
	OutcomeSkipped  = "skipped"
)

// Metrics groups the collectors of one registry
type Metrics struct {
	Registry *prometheus.Registry

	Lookups          *prometheus.CounterVec
	LookupConfidence *prometheus.HistogramVec
	LookupDuration   prometheus.Histogram
	Replays          *prometheus.CounterVec
	ReplayDuration   prometheus.Histogram
	Intents          *prometheus.CounterVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webomatic",
			Name:      "lookups_total",
			Help:      "Target lookups by target and outcome.",
		}, []string{"target", "outcome"}),
		LookupConfidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webomatic",
			Name:      "lookup_confidence",
			Help:      "Best match confidence per lookup.",
			Buckets:   []float64{0.25, 0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 0.99, 1},
		}, []string{"target"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "webomatic",
			Name:      "lookup_duration_seconds",
			Help:      "Time spent capturing and matching one target.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		Replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webomatic",
			Name:      "replays_total",
			Help:      "Trajectory replays by outcome.",
		}, []string{"outcome"}),
		ReplayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "webomatic",
			Name:      "replay_duration_seconds",
			Help:      "Wall-clock duration of trajectory replays.",
			Buckets:   prometheus.LinearBuckets(0.25, 0.25, 12),
		}),
		Intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webomatic",
			Name:      "intents_total",
			Help:      "Intent records handled by the watcher, by outcome.",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(
		m.Lookups, m.LookupConfidence, m.LookupDuration,
		m.Replays, m.ReplayDuration, m.Intents,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveLookup records one lookup
func (m *Metrics) ObserveLookup(target, outcome string, confidence float64, took time.Duration) {
	m.Lookups.WithLabelValues(target, outcome).Inc()
	if outcome != OutcomeError {
		m.LookupConfidence.WithLabelValues(target).Observe(confidence)
	}
	m.LookupDuration.Observe(took.Seconds())
}

// ObserveReplay records one replay
func (m *Metrics) ObserveReplay(outcome string, took time.Duration) {
	m.Replays.WithLabelValues(outcome).Inc()
	m.ReplayDuration.Observe(took.Seconds())
}

// ObserveIntent counts one intent handled by the watcher
func (m *Metrics) ObserveIntent(outcome string) {
	m.Intents.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the server fails
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

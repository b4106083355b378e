// Package telemetry counts backend traffic, cache reuse and metric outcomes
// for one evaluation session.
//
// Usage:
//
//	m := telemetry.NewMetrics()
//	m.BackendCall("ask", "ok", elapsed)
//	_ = m.WriteTextfile("results/metrics.prom")
//
// A nil *Metrics is valid and records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the session's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// BackendCalls counts backend requests.
	// Labels: op (health|upload|ask), result (ok|error)
	BackendCalls *prometheus.CounterVec

	// BackendDuration measures backend request latency in seconds.
	// Labels: op
	BackendDuration *prometheus.HistogramVec

	// CacheLookups counts cache hits and misses.
	// Labels: cache (upload|ask), result (hit|miss|bypass)
	CacheLookups *prometheus.CounterVec

	// MetricOutcomes counts recorded metric outcomes.
	// Labels: metric, result (pass|fail|error)
	MetricOutcomes *prometheus.CounterVec

	// ScorerAttempts counts external scorer invocations.
	// Labels: metric
	ScorerAttempts *prometheus.CounterVec

	// RunsPersisted counts persisted runs.
	// Labels: status (pass|fail|no_data)
	RunsPersisted *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		BackendCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rageval_backend_calls_total",
				Help: "Backend requests by operation and result",
			},
			[]string{"op", "result"},
		),
		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rageval_backend_call_duration_seconds",
				Help:    "Backend request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 120},
			},
			[]string{"op"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rageval_cache_lookups_total",
				Help: "Backend cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		MetricOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rageval_metric_outcomes_total",
				Help: "Metric outcomes by metric and result",
			},
			[]string{"metric", "result"},
		),
		ScorerAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rageval_scorer_attempts_total",
				Help: "External scorer invocations by metric",
			},
			[]string{"metric"},
		),
		RunsPersisted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rageval_runs_persisted_total",
				Help: "Persisted runs by overall status",
			},
			[]string{"status"},
		),
	}
}

// Registry exposes the underlying registry as a gatherer.
func (m *Metrics) Registry() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// BackendCall records one backend request.
func (m *Metrics) BackendCall(op, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(op, result).Inc()
	m.BackendDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// CacheLookup records a cache hit, miss or bypass.
func (m *Metrics) CacheLookup(cache, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

// MetricOutcome records a finished metric outcome.
func (m *Metrics) MetricOutcome(metric, result string) {
	if m == nil {
		return
	}
	m.MetricOutcomes.WithLabelValues(metric, result).Inc()
}

// ScorerAttempt records one external scorer call.
func (m *Metrics) ScorerAttempt(metric string) {
	if m == nil {
		return
	}
	m.ScorerAttempts.WithLabelValues(metric).Inc()
}

// RunPersisted records a persisted run.
func (m *Metrics) RunPersisted(status string) {
	if m == nil {
		return
	}
	m.RunsPersisted.WithLabelValues(status).Inc()
}

// WriteTextfile writes the current values in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

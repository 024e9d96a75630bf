// Package metrics exposes the runtime's Prometheus registry: per-source
// extraction counters, HTTP resilience gauges, and pipeline stage
// durations (spec §4.2 "Metrics" and the runtime's own instrumentation
// needs). Every collector lives on one Registry value rather than as
// package-level globals, so a run's metrics can be scoped to a fresh
// prometheus.Registry in tests instead of colliding on the default one.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bioetl-io/bioetl/internal/extract"
	"github.com/bioetl-io/bioetl/internal/httpclient"
)

// Registry bundles the runtime's Prometheus collectors.
type Registry struct {
	reg *prometheus.Registry

	ExtractSuccess   *prometheus.CounterVec
	ExtractFallback  *prometheus.CounterVec
	ExtractError     *prometheus.CounterVec
	ExtractAPICalls  *prometheus.CounterVec
	ExtractCacheHits *prometheus.CounterVec

	HTTPCacheHitTotal *prometheus.CounterVec
	HTTPBreakerState  *prometheus.GaugeVec
	HTTPOutageActive  *prometheus.GaugeVec

	StageDuration *prometheus.HistogramVec
	RunsTotal     *prometheus.CounterVec
}

// NewRegistry registers every collector against reg and returns the
// Registry wrapping them. Pass prometheus.NewRegistry() for an isolated
// instance (tests, or one registry per pipeline run); pass
// prometheus.DefaultRegisterer's backing registry for a long-lived
// process that serves /metrics for its whole lifetime.
func NewRegistry(reg *prometheus.Registry) *Registry {
	f := promauto.With(reg)

	labelSource := []string{"source"}

	return &Registry{
		reg: reg,

		ExtractSuccess: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bioetl",
			Subsystem: "extract",
			Name:      "success_total",
			Help:      "Records successfully extracted, per source.",
		}, labelSource),

		ExtractFallback: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bioetl",
			Subsystem: "extract",
			Name:      "fallback_total",
			Help:      "Fallback placeholder records manufactured, per source.",
		}, labelSource),

		ExtractError: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bioetl",
			Subsystem: "extract",
			Name:      "error_total",
			Help:      "Identifiers that failed extraction outright, per source.",
		}, labelSource),

		ExtractAPICalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bioetl",
			Subsystem: "extract",
			Name:      "api_calls_total",
			Help:      "HTTP requests issued during extraction, per source.",
		}, labelSource),

		ExtractCacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bioetl",
			Subsystem: "extract",
			Name:      "cache_hits_total",
			Help:      "Extraction requests served from the HTTP cache, per source.",
		}, labelSource),

		HTTPCacheHitTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bioetl",
			Subsystem: "http",
			Name:      "cache_hit_total",
			Help:      "HTTP fetches served from cache rather than a round trip, per source.",
		}, labelSource),

		HTTPBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bioetl",
			Subsystem: "http",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per source (0=closed, 1=open, 2=half-open).",
		}, labelSource),

		HTTPOutageActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bioetl",
			Subsystem: "http",
			Name:      "outage_active",
			Help:      "Whether a source is presently marked down (1) or not (0).",
		}, labelSource),

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bioetl",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"stage"}),

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bioetl",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by terminal status.",
		}, []string{"status"}),
	}
}

// Handler serves the registry's collectors in the Prometheus exposition
// format, for wiring into the operator HTTP surface's /metrics route.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveExtract records one source's final extraction tallies. It is
// called once per source after extract.Orchestrator.ExtractSource
// returns, so snap's cumulative counts translate directly into one
// counter increment each — a one-shot CLI run never calls this twice for
// the same source.
func (r *Registry) ObserveExtract(source string, snap extract.Metrics) {
	r.ExtractSuccess.WithLabelValues(source).Add(float64(snap.Success))
	r.ExtractFallback.WithLabelValues(source).Add(float64(snap.Fallback))
	r.ExtractError.WithLabelValues(source).Add(float64(snap.Error))
	r.ExtractAPICalls.WithLabelValues(source).Add(float64(snap.APICalls))
	r.ExtractCacheHits.WithLabelValues(source).Add(float64(snap.CacheHits))
}

// ObserveFetch records whether one HTTP fetch was served from cache.
func (r *Registry) ObserveFetch(source string, resp *httpclient.Response) {
	if resp != nil && resp.FromCache {
		r.HTTPCacheHitTotal.WithLabelValues(source).Inc()
	}
}

// SetBreakerState mirrors a source's current circuit breaker state onto
// its gauge.
func (r *Registry) SetBreakerState(source string, state httpclient.BreakerState) {
	r.HTTPBreakerState.WithLabelValues(source).Set(float64(state))
}

// SetOutageActive mirrors a source's current outage status onto its gauge.
func (r *Registry) SetOutageActive(source string, active bool) {
	value := 0.0
	if active {
		value = 1
	}

	r.HTTPOutageActive.WithLabelValues(source).Set(value)
}

// ObserveStageDuration records how long a pipeline stage took.
func (r *Registry) ObserveStageDuration(stage string, d time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun records one completed run's terminal status ("success",
// "failure", "dry_run").
func (r *Registry) RecordRun(status string) {
	r.RunsTotal.WithLabelValues(status).Inc()
}

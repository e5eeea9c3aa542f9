// Package metrics holds the prometheus collectors of the scoreboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scoreboard"

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Verdict event outcomes.
const (
	EventApplied   = "applied"
	EventDuplicate = "duplicate"
	EventMalformed = "malformed"
	EventFailed    = "failed"
)

var computeBuckets = []float64{
	0.001, 0.002, 0.005, 0.010, 0.025, 0.050, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// Metrics groups the collectors; a nil *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	computeTime   prometheus.Histogram
	cacheLookups  *prometheus.CounterVec
	verdictEvents *prometheus.CounterVec
	unavailable   prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		computeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_compute_seconds",
			Help:      "Histogram for loading and ranking a contest scoreboard",
			Buckets:   computeBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_total",
			Help:      "Number of scoreboard cache lookups by result",
		}, []string{"result"}),
		verdictEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdict_events_total",
			Help:      "Number of verdict events consumed by outcome",
		}, []string{"outcome"}),
		unavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_unavailable_total",
			Help:      "Number of snapshot requests failed because submission data could not be read",
		}),
	}
	m.registry.MustRegister(
		m.computeTime,
		m.cacheLookups,
		m.verdictEvents,
		m.unavailable,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveCompute(d time.Duration) {
	if m == nil {
		return
	}
	m.computeTime.Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) VerdictEvent(outcome string) {
	if m == nil {
		return
	}
	m.verdictEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Unavailable() {
	if m == nil {
		return
	}
	m.unavailable.Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

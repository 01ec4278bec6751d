// Package metrics exposes Prometheus collectors for runs, nodes and the
// result cache. Collectors live in their own registry so that several
// engines, or tests, never collide on the global one.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the engine's collectors. A nil *Metrics discards every
// observation.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec
	NodesTotal    *prometheus.CounterVec
	NodeDuration  *prometheus.HistogramVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheStores   prometheus.Counter
	ActiveWorkers prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotflow_runs_total",
				Help: "Graph runs by final status",
			},
			[]string{"status"},
		),
		NodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotflow_nodes_total",
				Help: "Node executions by final status",
			},
			[]string{"status"},
		),
		NodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slotflow_node_duration_seconds",
				Help:    "Wall time of node executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slotflow_cache_hits_total",
			Help: "Node outputs served from the cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slotflow_cache_misses_total",
			Help: "Node outputs that had to be computed",
		}),
		CacheStores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slotflow_cache_stores_total",
			Help: "Entries written to the cache",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slotflow_active_workers",
			Help: "Workers currently executing a node",
		}),
	}
	m.registry.MustRegister(m.RunsTotal, m.NodesTotal, m.NodeDuration, m.CacheHits, m.CacheMisses, m.CacheStores, m.ActiveWorkers)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunFinished counts a finished run.
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// NodeFinished counts a finished node and records its duration.
func (m *Metrics) NodeFinished(nodeType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.NodesTotal.WithLabelValues(status).Inc()
	m.NodeDuration.WithLabelValues(nodeType).Observe(d.Seconds())
}

// WorkerBusy tracks the number of busy workers; pass -1 when a worker
// becomes idle again.
func (m *Metrics) WorkerBusy(delta float64) {
	if m == nil {
		return
	}
	m.ActiveWorkers.Add(delta)
}

// CacheHit implements cache.Observer.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// CacheMiss implements cache.Observer.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// CacheStore implements cache.Observer.
func (m *Metrics) CacheStore() {
	if m != nil {
		m.CacheStores.Inc()
	}
}

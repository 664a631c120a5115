// Package monitoring exposes Prometheus metrics for the surface manager.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. Components tolerate a nil
// *Metrics so isolated tests can skip instrumentation entirely.
type Metrics struct {
	// Surface lifecycle
	SurfacesLive  prometheus.Gauge
	SpareSurfaces prometheus.Gauge
	SpareHits     prometheus.Counter
	SpareMisses   prometheus.Counter

	// Cache
	CacheSize      prometheus.Gauge
	CacheEvictions prometheus.Counter

	// Switching
	SwitchesTotal    prometheus.Counter
	SwitchesFailed   prometheus.Counter
	SwitchesCoalesce prometheus.Counter
	SwitchDuration   prometheus.Histogram

	// Transport
	WSConnections prometheus.Gauge
}

// NewMetrics creates the collector set on the given registerer. A nil
// registerer uses the default registry; tests pass their own
// prometheus.NewRegistry to stay isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SurfacesLive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tabhost_surfaces_live",
			Help: "Number of live surfaces registered with the host",
		}),
		SpareSurfaces: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tabhost_spare_surfaces",
			Help: "Number of pre-warmed spare surfaces held by the pool",
		}),
		SpareHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabhost_spare_hits_total",
			Help: "Tab opens served from the hot-spare pool",
		}),
		SpareMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabhost_spare_misses_total",
			Help: "Tab opens that paid full surface construction latency",
		}),
		CacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tabhost_cache_size",
			Help: "Number of surfaces held by the cache",
		}),
		CacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabhost_cache_evictions_total",
			Help: "Surfaces destroyed by LRU eviction",
		}),
		SwitchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabhost_switches_total",
			Help: "Tab-switch transitions processed",
		}),
		SwitchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabhost_switches_failed_total",
			Help: "Tab-switch transitions that ended in error",
		}),
		SwitchesCoalesce: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabhost_switches_coalesced_total",
			Help: "Pending switch requests discarded by latest-wins coalescing",
		}),
		SwitchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tabhost_switch_duration_seconds",
			Help:    "Duration of tab-switch transitions",
			Buckets: prometheus.DefBuckets,
		}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tabhost_ws_connections",
			Help: "Active websocket event-stream connections",
		}),
	}
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/covenant/pkg/config"
)

// CacheMetrics tracks cache performance.
//
// Metrics:
//   - covenant_cache_hits_total{cache}
//   - covenant_cache_misses_total{cache}
//   - covenant_cache_entries{cache}
//
// Caches such as the expression compiler keep their own cumulative counters;
// Observe turns successive snapshots into counter increments.
type CacheMetrics struct {
	hitsTotal   *prometheus.CounterVec
	missesTotal *prometheus.CounterVec
	entries     *prometheus.GaugeVec

	mu   sync.Mutex
	last map[string]cacheSnapshot
}

type cacheSnapshot struct {
	hits, misses uint64
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),

		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_entries",
				Help:      "Current number of entries in cache",
			},
			[]string{"cache"},
		),

		last: make(map[string]cacheSnapshot),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.entries,
	)

	return cm
}

// Observe records a snapshot of cumulative counters. Counters that went
// backwards (the cache was recreated) restart from the new values.
func (cm *CacheMetrics) Observe(cacheName string, hits, misses uint64, entries int) {
	cm.mu.Lock()
	prev := cm.last[cacheName]
	cm.last[cacheName] = cacheSnapshot{hits: hits, misses: misses}
	cm.mu.Unlock()

	if hits < prev.hits {
		prev.hits = 0
	}
	if misses < prev.misses {
		prev.misses = 0
	}

	if d := hits - prev.hits; d > 0 {
		cm.hitsTotal.WithLabelValues(cacheName).Add(float64(d))
	}
	if d := misses - prev.misses; d > 0 {
		cm.missesTotal.WithLabelValues(cacheName).Add(float64(d))
	}
	cm.entries.WithLabelValues(cacheName).Set(float64(entries))
}

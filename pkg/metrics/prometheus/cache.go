package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fcanovai/rescache/pkg/rescache"
)

// cacheMetrics is the Prometheus implementation of rescache.Metrics.
type cacheMetrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	stores      prometheus.Counter
	storedBytes prometheus.Counter
	hitRatio    prometheus.Gauge
	entries     prometheus.Gauge
}

// NewCacheMetrics creates cache index collectors registered against reg.
// Returns nil when reg is nil.
func NewCacheMetrics(reg prometheus.Registerer) rescache.Metrics {
	if reg == nil {
		return nil
	}

	return &cacheMetrics{
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rescache_cache_hits_total",
			Help: "Total cache hits",
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rescache_cache_misses_total",
			Help: "Total cache misses, including stale entries reconciled on access",
		}),
		stores: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rescache_cache_stores_total",
			Help: "Total successful resource stores",
		}),
		storedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rescache_cache_stored_bytes_total",
			Help: "Total bytes copied into the cache by stores",
		}),
		hitRatio: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "rescache_cache_hit_ratio_percent",
			Help: "Current hit ratio as a percentage",
		}),
		entries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "rescache_cache_entries",
			Help: "Number of index entries",
		}),
	}
}

func (m *cacheMetrics) ObserveHit() {
	m.hits.Inc()
}

func (m *cacheMetrics) ObserveMiss() {
	m.misses.Inc()
}

func (m *cacheMetrics) ObserveStore(bytes int) {
	m.stores.Inc()
	m.storedBytes.Add(float64(bytes))
}

func (m *cacheMetrics) RecordHitRatio(percent float64) {
	m.hitRatio.Set(percent)
}

func (m *cacheMetrics) RecordEntryCount(count int) {
	m.entries.Set(float64(count))
}

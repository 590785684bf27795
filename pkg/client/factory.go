package client

import (
	"github.com/fcanovai/rescache/pkg/config"
	"github.com/fcanovai/rescache/pkg/mempool"
	"github.com/fcanovai/rescache/pkg/metrics"
	prom "github.com/fcanovai/rescache/pkg/metrics/prometheus"
	"github.com/fcanovai/rescache/pkg/rescache"
)

// NewFromConfig assembles a caching client from configuration: a memory pool
// sized by cache.size with the configured cleanup threshold, the cache index
// on top, and prometheus collectors when the metrics registry is enabled.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	var (
		poolOpts  []mempool.Option
		cacheOpts []rescache.Option
	)

	if cfg.Cache.CleanupThreshold > 0 {
		poolOpts = append(poolOpts, mempool.WithCleanupThreshold(cfg.Cache.CleanupThreshold))
	}
	if reg := metrics.GetRegistry(); reg != nil {
		poolOpts = append(poolOpts, mempool.WithMetrics(prom.NewPoolMetrics(reg)))
		cacheOpts = append(cacheOpts, rescache.WithMetrics(prom.NewCacheMetrics(reg)))
	}

	pool := mempool.New(cfg.Cache.Size.Uint64(), poolOpts...)
	cache := rescache.New(pool, cacheOpts...)

	return New(cfg.Cache.ServerURL, cache, opts...)
}

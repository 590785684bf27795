package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcanovai/rescache/internal/bytesize"
	"github.com/fcanovai/rescache/pkg/config"
)

func TestNewFromConfig(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Size = 2 * bytesize.MiB
	cfg.Cache.CleanupThreshold = 0.5

	c := NewFromConfig(cfg)

	cache := c.Cache()
	require.NotNil(t, cache)

	pool := cache.Pool()
	assert.Equal(t, uint64(2*bytesize.MiB), pool.MaxSize())
	assert.Equal(t, uint64(bytesize.MiB), pool.CleanupThreshold())
}

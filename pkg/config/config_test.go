package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcanovai/rescache/internal/bytesize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: DEBUG
  format: json
  output: stderr
server:
  listen_addr: ":9000"
  data_dir: /tmp/rescache-data
  shutdown_timeout: 10s
cache:
  size: 128MB
  cleanup_threshold: 0.8
  server_url: http://example.com:9000
metrics:
  enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, "/tmp/rescache-data", cfg.Server.DataDir)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 128*bytesize.MB, cfg.Cache.Size)
	assert.Equal(t, 0.8, cfg.Cache.CleanupThreshold)
	assert.Equal(t, "http://example.com:9000", cfg.Cache.ServerURL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
server:
  in_memory: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
	assert.Equal(t, DefaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DefaultCacheSize, cfg.Cache.Size)
	assert.Equal(t, DefaultCleanupThreshold, cfg.Cache.CleanupThreshold)
	assert.Equal(t, DefaultServerURL, cfg.Cache.ServerURL)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingFileExplicitPath(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "logging: [not a map")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: LOUD
server:
  in_memory: true
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_InvalidCleanupThreshold(t *testing.T) {
	path := writeConfig(t, `
server:
  in_memory: true
cache:
  cleanup_threshold: 1.5
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingDataDir(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_addr: ":9000"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_dir")
}

func TestLoad_ByteSizeFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want bytesize.ByteSize
	}{
		{`"512KB"`, 512 * bytesize.KB},
		{`"1GiB"`, bytesize.GiB},
		{"1048576", bytesize.MiB},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			path := writeConfig(t, `
server:
  in_memory: true
cache:
  size: `+tt.raw+`
`)
			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Cache.Size)
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: INFO
server:
  in_memory: true
`)

	t.Setenv("RESCACHE_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Server.InMemory = true
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.ListenAddr, loaded.Server.ListenAddr)
	assert.Equal(t, cfg.Cache.Size, loaded.Cache.Size)
}

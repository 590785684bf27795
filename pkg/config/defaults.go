package config

import (
	"time"

	"github.com/fcanovai/rescache/internal/bytesize"
)

// Default values applied for settings the config file leaves out.
const (
	DefaultLogLevel  = "INFO"
	DefaultLogFormat = "text"
	DefaultLogOutput = "stdout"

	DefaultListenAddr      = ":8420"
	DefaultShutdownTimeout = 30 * time.Second

	DefaultCacheSize        = 64 * bytesize.MB
	DefaultCleanupThreshold = 0.9
	DefaultServerURL        = "http://localhost:8420"
)

// ApplyDefaults fills in default values for any unset configuration fields.
// Explicitly set values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyCacheDefaults(&cfg.Cache)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
	if cfg.Format == "" {
		cfg.Format = DefaultLogFormat
	}
	if cfg.Output == "" {
		cfg.Output = DefaultLogOutput
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Size == 0 {
		cfg.Size = DefaultCacheSize
	}
	if cfg.CleanupThreshold == 0 {
		cfg.CleanupThreshold = DefaultCleanupThreshold
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
}

// GetDefaultConfig returns a configuration with all defaults applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

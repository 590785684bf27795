package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fcanovai/rescache/internal/logger"
	"github.com/fcanovai/rescache/pkg/config"
	"github.com/fcanovai/rescache/pkg/metrics"
	"github.com/fcanovai/rescache/pkg/server"
	"github.com/fcanovai/rescache/pkg/server/store"
	badgerstore "github.com/fcanovai/rescache/pkg/server/store/badger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the resource server",
	Long: `Start the resource server in the foreground.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/rescache/config.yaml.

Examples:
  # Start with default config location
  rescached serve

  # Start with custom config file
  rescached serve --config /etc/rescache/config.yaml

  # Start with environment variable overrides
  RESCACHE_LOGGING_LEVEL=DEBUG rescached serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("metrics enabled")
	} else {
		logger.Info("metrics collection disabled")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close error", logger.KeyError, err)
		}
	}()

	srv := server.New(server.Config{ListenAddr: cfg.Server.ListenAddr}, st)

	// Cancel on SIGINT/SIGTERM so the HTTP server drains gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting rescached",
		"version", Version,
		"addr", cfg.Server.ListenAddr,
		"in_memory", cfg.Server.InMemory)

	if err := srv.ListenAndServe(ctx, cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Server.InMemory {
		logger.Warn("using in-memory store, resources will not survive restarts")
		return badgerstore.NewInMemory()
	}

	if err := os.MkdirAll(cfg.Server.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logger.Info("opening resource store", "dir", cfg.Server.DataDir)
	return badgerstore.New(cfg.Server.DataDir)
}

// Package cli provides the start-up sequence shared by cmd/insights and
// cmd/insights-report.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"insights/internal/backend"
	"insights/internal/config"
	"insights/internal/core"
	"insights/internal/loader"
	applog "insights/internal/log"
)

// SetupLogger builds the process logger from cfg and installs it as the
// slog default. An unparseable level falls back to info.
func SetupLogger(cfg *config.Config) *applog.Logger {
	return SetupLoggerTo(cfg, os.Stdout)
}

// SetupLoggerTo is SetupLogger writing to w.
func SetupLoggerTo(cfg *config.Config, w io.Writer) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Output = w
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = cfg.LogFormat
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		// The configured logger depends on a valid config.
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// LoadDataset reads the configured data file and logs what the loader had
// to tolerate. A returned error is always a *loader.LoadError.
func LoadDataset(logger *applog.Logger, cfg *config.Config) (*core.Table, loader.Stats, error) {
	logger = logger.WithComponent(applog.ComponentLoader)

	table, stats, err := loader.Load(cfg.DataFile,
		loader.WithDelimiter(cfg.Delimiter()),
		loader.WithLogger(logger.Slog()),
	)
	if err != nil {
		return nil, stats, err
	}

	logger.Info("Dataset ready",
		applog.FieldSource, cfg.DataFile,
		applog.FieldRows, table.Len(),
		applog.FieldColumns, len(table.Columns()),
		"invalid_timestamps", stats.InvalidTimestamps,
		"invalid_flags", stats.InvalidFlags,
		applog.FieldDuration, stats.Duration.Milliseconds())
	return table, stats, nil
}

// MustLoadDataset is LoadDataset for commands: a load failure is reported
// and the process exits before any aggregation runs.
func MustLoadDataset(logger *applog.Logger, cfg *config.Config) (*core.Table, loader.Stats) {
	table, stats, err := LoadDataset(logger, cfg)
	if err != nil {
		var le *loader.LoadError
		if errors.As(err, &le) {
			logger.Error("Failed to load dataset",
				applog.FieldSource, le.Path,
				"kind", le.Kind.Error(),
				applog.FieldError, err)
		} else {
			logger.Error("Failed to load dataset", applog.FieldError, err)
		}
		os.Exit(1)
	}
	return table, stats
}

// InitBackend builds the configured aggregation backend over table.
// Returns the backend or exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config, table *core.Table) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Slog()).CreateBackend(ctx, bc, table)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, bc.Type.String())
		os.Exit(1)
	}
	logger.Info("Backend ready", applog.FieldBackend, bc.Type.String())
	return res
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context) error) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup == nil {
			return
		}
		finished := make(chan error, 1)
		go func() { finished <- cleanup(shutdownCtx) }()

		select {
		case err := <-finished:
			if err != nil {
				logger.Error("Shutdown cleanup failed", applog.FieldError, err)
				return
			}
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"insights/internal/cli"
	apphttp "insights/internal/http"
	applog "insights/internal/log"
	"insights/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	logger := cli.SetupLogger(cfg)
	logger.Info("Starting insights server", applog.FieldOperation, applog.OpStartup)

	// The dataset is read once; nothing is served if it cannot be loaded.
	table, stats := cli.MustLoadDataset(logger, cfg)

	m := metrics.New()
	m.SetDataset(table.Len(), len(table.Columns()), map[string]int{
		"created_date_time":        stats.InvalidTimestamps,
		"is_on_dedicated_capacity": stats.InvalidFlags,
	})

	res := cli.InitBackend(context.Background(), logger, cfg, table)

	policies := cfg.Policies()
	srv, err := apphttp.NewServer(":"+cfg.Port, res.Backend, apphttp.Options{
		Logger:         logger,
		Metrics:        m,
		Policies:       &policies,
		ChartCacheSize: cfg.ChartCacheSize,
		ChartCacheTTL:  cfg.ChartCacheTTL,
		RawPageSize:    cfg.RawPageSize,

		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		logger.Error("Failed to create server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		err := srv.Shutdown(ctx)
		if res.Cleanup != nil {
			err = errors.Join(err, res.Cleanup())
		}
		return err
	})

	logger.Info("Listening",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		applog.FieldSource, cfg.DataFile)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"insights/internal/backend"
	"insights/internal/cli"
	"insights/internal/config"
	"insights/internal/dashboard"
	applog "insights/internal/log"
	"insights/internal/render/text"
)

func main() {
	file := flag.String("file", "", "Path to the CSV data file (overrides DATA_FILE)")
	limit := flag.Int("limit", 0, "Maximum rows printed per block; 0 prints all")
	raw := flag.Int("raw", 0, "Print the first N raw rows after the overview")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `insights-report prints the dashboard as plain text.

Usage:
  insights-report -file reports.csv
  insights-report -file reports.csv -limit 10 -raw 20

Flags:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	cli.LoadEnvFile()
	if *file != "" {
		_ = os.Setenv("DATA_FILE", *file)
	}
	cfg := cli.LoadAndValidateConfig()

	// Logs go to stderr so the report can be piped.
	logger := cli.SetupLoggerTo(cfg, os.Stderr)
	table, _ := cli.MustLoadDataset(logger, cfg)

	ctx := context.Background()
	res := cli.InitBackend(ctx, logger, cfg, table)

	err := run(ctx, res.Backend, cfg.Policies(), logger, *limit, *raw)
	if res.Cleanup != nil {
		if cerr := res.Cleanup(); cerr != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, cerr)
		}
	}
	if err != nil {
		logger.Error("Report failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, b backend.Backend, policies config.Policies, logger *applog.Logger, limit, rawRows int) error {
	d, err := dashboard.NewBuilder(b,
		dashboard.WithPolicies(policies),
		dashboard.WithLogger(logger.Slog()),
	).Build(ctx)
	if err != nil {
		return fmt.Errorf("build dashboard: %w", err)
	}

	opts := text.Options{Limit: limit}
	if rawRows > 0 {
		header, rows, total, err := b.RawRows(ctx, 0, rawRows)
		if err != nil {
			return fmt.Errorf("read raw rows: %w", err)
		}
		opts.Raw = &text.Raw{Header: header, Rows: rows, Total: total}
	}

	if err := text.Render(os.Stdout, d, opts); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

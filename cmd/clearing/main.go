// Command clearing replays a CSV file of account events and prints the
// final balance of every client as CSV on stdout.
//
//	clearing transactions.csv > accounts.csv
//
// Diagnostics go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/xraph/clearing"
	audithook "github.com/xraph/clearing/audit_hook"
	"github.com/xraph/clearing/config"
	"github.com/xraph/clearing/id"
	"github.com/xraph/clearing/ingest"
	"github.com/xraph/clearing/observability"
	"github.com/xraph/clearing/partition"
	"github.com/xraph/clearing/report"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "clearing:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := config.Flags("clearing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 && !fs.Changed("input") {
		if err := fs.Set("input", fs.Arg(0)); err != nil {
			return err
		}
	}

	configFile, _ := fs.GetString("config")
	cfg, err := config.Load(configFile, fs)
	if err != nil {
		return err
	}

	logger, flush, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer flush() //nolint:errcheck // stderr sync fails on some terminals

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return replay(ctx, cfg, logger, stdin, stdout)
}

func replay(ctx context.Context, cfg config.Config, logger *slog.Logger, stdin io.Reader, stdout io.Writer) error {
	in, closeIn, err := openInput(cfg.Input, stdin)
	if err != nil {
		return err
	}
	defer closeIn()

	policy, err := cfg.LockPolicy()
	if err != nil {
		return err
	}

	engineOpts := []clearing.Option{
		clearing.WithLockPolicy(policy),
		clearing.WithHookTimeout(cfg.Engine.HookTimeout),
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(registry))
		engineOpts = append(engineOpts, clearing.WithPlugin(metrics))
	}
	if cfg.Audit.Enabled {
		trail := audithook.New(
			audithook.LogRecorder(logger.With("component", "audit")),
			audithook.WithLogger(logger),
		)
		engineOpts = append(engineOpts, clearing.WithPlugin(trail))
	}

	runID := id.NewRunID()
	runner, err := partition.New(ctx, cfg.Engine.Partitions, cfg.History.Stores(runID),
		partition.WithLogger(logger),
		partition.WithRunID(runID),
		partition.WithEngineOptions(engineOpts...),
	)
	if err != nil {
		return err
	}

	if err := runner.Start(ctx); err != nil {
		_ = runner.Stop(ctx)
		return err
	}

	reader := ingest.NewReader(in,
		ingest.WithLogger(logger),
		ingest.WithStrict(cfg.Engine.StrictInput),
	)

	stats, runErr := runner.Run(ctx, reader)
	if stopErr := runner.Stop(context.WithoutCancel(ctx)); stopErr != nil {
		logger.Error("stopping engines", "error", stopErr)
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("replay finished",
		"run_id", runID.String(),
		"rows_read", reader.Read(),
		"rows_skipped", reader.Skipped(),
		"applied", stats.Applied,
		"rejected", stats.Rejected(),
		"clamped", stats.Clamped,
		"accounts_locked", stats.AccountsLocked,
	)

	out, closeOut, err := openOutput(cfg.Output, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	if err := report.NewWriter(out).Write(runner.Snapshot()); err != nil {
		return err
	}

	if registry != nil && cfg.Metrics.File != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.File, registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// Command tabkit joins delimited files and runs one analysis on the result.
//
//	tabkit [--op select_columns|correlation_matrix] [--index_col N]
//	       [--output_file PATH] [--columns SPEC] FILE[,FILE...]
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"tabkit/internal/config"
	"tabkit/internal/infrastructure"
	"tabkit/internal/operations"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "tabkit: %v\n", err)
		return 1
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "tabkit: failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	ctx := infrastructure.EnsureRunID(context.Background())
	logger.DebugContext(ctx, "Got a logger")

	opts, err := config.ParseArgs(args)
	if stderrors.Is(err, config.ErrHelp) {
		config.Usage(stdout)
		return 0
	}
	if err != nil {
		logger.ErrorContext(ctx, "Invalid arguments", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "tabkit: %v\n", err)
		config.Usage(stderr)
		return 1
	}

	providers, err := infrastructure.InitializeOTel(cfg.Tracing, cfg.Metrics, stderr, logger.Logger)
	if err != nil {
		fmt.Fprintf(stderr, "tabkit: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.WarnContext(ctx, "Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		fmt.Fprintf(stderr, "tabkit: %v\n", err)
		return 1
	}

	manager, err := operations.NewManager(operations.Dependencies{
		Logger:   logger.Logger,
		Stdout:   stdout,
		Tracer:   providers.Tracer,
		Metrics:  metrics,
		Analysis: cfg.Analysis,
	})
	if err != nil {
		fmt.Fprintf(stderr, "tabkit: %v\n", err)
		return 1
	}

	if _, err := manager.Run(ctx, opts); err != nil {
		fmt.Fprintf(stderr, "tabkit: %v\n", err)
		return 1
	}
	return 0
}

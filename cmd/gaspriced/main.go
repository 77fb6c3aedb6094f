// Package main is the entry point for the gas price daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"

	"github.com/branched-services/go-gasprice/internal/api/rest"
	"github.com/branched-services/go-gasprice/internal/config"
	"github.com/branched-services/go-gasprice/internal/observability"
	"github.com/branched-services/go-gasprice/pkg/gasprice"
	"github.com/branched-services/go-gasprice/pkg/health"
)

func main() {
	app := cli.NewApp()
	app.Name = "gaspriced"
	app.Usage = "Polls block explorer and node gas prices per chain and serves cached estimates over HTTP"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the YAML configuration file",
			Value: "config.yaml",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "force debug log level",
		},
	}
	app.Action = func(c *cli.Context) error {
		// Root context canceled on SIGTERM/SIGINT (12-factor: disposability)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return run(ctx, c.String("config"), c.Bool("debug"))
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, debug bool) error {
	// A local .env feeds the ${...} references in the config file.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}

	// Structured logging to stdout (12-factor: logs as streams)
	logger := observability.NewLogger(level, cfg.Logging.Format)
	slog.SetDefault(logger)

	slog.Info("starting gas price daemon",
		"api_addr", cfg.Server.APIAddr,
		"health_addr", cfg.Server.HealthAddr,
		"chains", len(cfg.Chains),
	)

	// Build dependency graph (dependency inversion)

	// 1. Registry: at most one live tracker per source configuration.
	registry := gasprice.NewRegistry()
	defer registry.Close()

	// 2. Trackers, one per configured chain. They start polling on
	// construction; the registry dedupes chains sharing endpoints.
	chains := make(map[string]rest.PriceReader, len(cfg.Chains))
	checks := make(health.Checks, len(cfg.Chains))
	for _, ch := range cfg.Chains {
		tracker, err := registry.GetOrCreate(
			gasprice.SourceConfig{
				ExplorerURL:    ch.ExplorerURL,
				ExplorerAPIKey: ch.ExplorerAPIKey,
				RPCURL:         ch.RPCURL,
			},
			gasprice.WithName(ch.Name),
			gasprice.WithPollInterval(ch.PollInterval),
			gasprice.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("creating tracker for %s: %w", ch.Name, err)
		}
		chains[ch.Name] = tracker
		checks[ch.Name] = tracker
	}

	// 3. API server
	apiServer := rest.NewServer(cfg.Server.APIAddr, chains, logger)

	// 4. Health server (probes, metrics, pprof)
	healthServer := health.NewServer(cfg.Server.HealthAddr, checks, logger)

	// Run the servers concurrently; the trackers are already polling.
	errCh := make(chan error, 2)

	go func() {
		if err := apiServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	go func() {
		if err := healthServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	case err := <-errCh:
		slog.Error("component failed", "error", err)
		return err
	}

	// Graceful shutdown with timeout
	slog.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown in reverse dependency order; the deferred registry Close
	// stops the trackers last.
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api server shutdown error", "error", err)
	}

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("health server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

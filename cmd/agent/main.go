package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/baccaristic/foodify-restaurant-agent/internal/app"
	"github.com/baccaristic/foodify-restaurant-agent/internal/config"
	"github.com/baccaristic/foodify-restaurant-agent/internal/logger"
	"github.com/baccaristic/foodify-restaurant-agent/internal/tracing"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logger.
	log := logger.New("restaurant-agent", cfg.LogLevel)
	log.Info("starting restaurant agent",
		slog.String("api_url", cfg.APIBaseURL),
		slog.String("realtime_url", cfg.RealtimeURL),
		slog.String("ops_addr", cfg.OpsAddr),
	)

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Optional tracing bootstrap.
	tracingCfg := tracing.DefaultConfig("restaurant-agent")
	tracingCfg.Enabled = cfg.TracingEnabled
	tracingCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tracingCfg.SampleRate = cfg.TraceSample
	shutdownTracing, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Create the agent with all dependencies wired.
	agent, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize agent: %w", err)
	}

	// Run the agent. This blocks until shutdown.
	if err := agent.Run(ctx); err != nil {
		return fmt.Errorf("run agent: %w", err)
	}

	log.Info("restaurant agent stopped")
	return nil
}

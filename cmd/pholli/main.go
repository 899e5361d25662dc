// Pholli Compare - Policy compatibility scoring and ranking.
// Copyright (c) 2025 Pholli
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fanelemenzi/pholli-compare/internal/api"
	"github.com/Fanelemenzi/pholli-compare/internal/bus"
	"github.com/Fanelemenzi/pholli-compare/internal/cache"
	"github.com/Fanelemenzi/pholli-compare/internal/comparison"
	"github.com/Fanelemenzi/pholli-compare/internal/domain"
	"github.com/Fanelemenzi/pholli-compare/internal/repository"
	"github.com/Fanelemenzi/pholli-compare/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("PHOLLI_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting pholli-compare",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("PHOLLI_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Comparison Manager
	manager := comparison.NewManager(repo, cacheImpl, busImpl, cfg.Comparison, logger)
	slog.Info("comparison manager initialized",
		"composite_ranking", cfg.Comparison.UseCompositeRanking,
	)

	// Initialize regeneration Worker. It keeps stored comparisons current
	// when policies or surveys change.
	var regenWorker *worker.Worker
	if os.Getenv("PHOLLI_WORKER") != "false" {
		regenWorker = worker.NewWorker(busImpl, repo, manager, logger)
		if err := regenWorker.Start(); err != nil {
			slog.Error("failed to start regeneration worker", "error", err)
		} else {
			slog.Info("regeneration worker started")
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, manager, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("pholli-compare is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop regeneration worker first
	if regenWorker != nil {
		if err := regenWorker.Stop(); err != nil {
			slog.Error("failed to stop regeneration worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("pholli-compare shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |              PHOLLI COMPARE               |")
	fmt.Println("  |   Policy Compatibility Scoring Engine     |")
	fmt.Println("  |     The right cover, ranked for you.      |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /compare                                    - Score a survey against active policies")
	fmt.Println("    POST /surveys                                    - Create a survey")
	fmt.Println("    GET  /surveys/{id}/results                       - Ranked comparison results")
	fmt.Println("    GET  /surveys/{id}/results/best                  - Best matches above a threshold")
	fmt.Println("    GET  /surveys/{id}/results/summary               - Recommendation summary")
	fmt.Println("    GET  /surveys/{id}/results/analysis              - Ranking and feature analysis")
	fmt.Println("    GET  /surveys/{id}/results/{policyID}/explanation - Detailed explanation")
	fmt.Println("    POST /policies                                   - Create a policy")
	fmt.Println("    PUT  /policies/{id}/features                     - Update policy features")
	fmt.Println("    GET  /health                                     - Health check")
	fmt.Println()
}

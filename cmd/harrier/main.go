// Harrier - Real-time fraud and risk assessment for payment flows.
// Copyright (c) 2025 opensource.finance
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

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/blocklist"
	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/config"
	"github.com/opensource-finance/harrier/internal/detector"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/events"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/profile"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/store"
	"github.com/opensource-finance/harrier/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration first; the log format depends on it.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"store", cfg.Store.Type,
		"repository", cfg.Repository.Driver,
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

	// Initialize KV store
	kv, err := store.New(cfg.Store)
	if err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer kv.Close()
	slog.Info("store initialized", "type", cfg.Store.Type)

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Shared state services on top of the KV store
	profiles := profile.NewStore(kv)
	recorder := events.NewRecorder(kv, busImpl)
	reputation := detector.NewStoreReputation(kv)
	cards := detector.NewStoreCardHistory(kv)
	blocker := blocklist.NewManager(kv)

	// Optional GeoIP resolver
	var resolver detector.LocationResolver = detector.NopResolver{}
	if cfg.GeoIPPath != "" {
		geo, err := detector.NewGeoIPResolver(cfg.GeoIPPath)
		if err != nil {
			slog.Error("failed to open GeoIP database", "path", cfg.GeoIPPath, "error", err)
			os.Exit(1)
		}
		defer geo.Close()
		resolver = geo
		slog.Info("geoip resolver initialized", "path", cfg.GeoIPPath)
	}

	// Custom rule detector, loaded from the database
	customRules, err := detector.NewCustomRules()
	if err != nil {
		slog.Error("failed to initialize custom rules", "error", err)
		os.Exit(1)
	}
	if err := loadRulesFromDatabase(ctx, repo, customRules); err != nil {
		slog.Error("failed to load custom rules", "error", err)
		os.Exit(1)
	}
	slog.Info("custom rules initialized", "rules_count", customRules.Count())

	// Detector set
	detectors := detector.Defaults(detector.Config{
		Store:      kv,
		Profiles:   profiles,
		Reputation: reputation,
		Cards:      cards,
	})
	detectors = append(detectors, customRules)

	// Assessment engine
	eng := engine.New(engine.Config{
		Detectors:       detectors,
		Store:           kv,
		Profiles:        profiles,
		Events:          recorder,
		Metrics:         metrics.NewPromSink(),
		Bus:             busImpl,
		Resolver:        resolver,
		DetectorTimeout: cfg.Engine.DetectorTimeout,
		AssessTimeout:   cfg.Engine.AssessTimeout,
		MaxConcurrent:   cfg.Engine.MaxConcurrent,
	})
	slog.Info("assessment engine initialized",
		"detectors", len(detectors),
		"detector_timeout", cfg.Engine.DetectorTimeout,
		"assess_timeout", cfg.Engine.AssessTimeout,
	)

	// Archive worker drains the bus into the repository
	archiver := worker.NewArchiver(busImpl, repo)
	if err := archiver.Start(); err != nil {
		slog.Error("failed to start archive worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, api.Dependencies{
		Engine:     eng,
		Store:      kv,
		Repo:       repo,
		Bus:        busImpl,
		Blocklist:  blocker,
		Events:     recorder,
		Profiles:   profiles,
		Reputation: reputation,
		Cards:      cards,
		Rules:      customRules,
		Version:    Version,
	})

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the archive worker first so in-flight messages drain
	if err := archiver.Stop(); err != nil {
		slog.Error("failed to stop archive worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("harrier shutdown complete")
}

// setupLogger installs the default slog logger per the logging config.
func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// loadRulesFromDatabase loads stored custom rules into the detector.
// All rules are configured via POST /rules - no hardcoded defaults.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, rules *detector.CustomRules) error {
	dbRules, err := repo.ListCustomRules(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return rules.Reload(dbRules)
	}

	slog.Info("no rules in database - configure via POST /rules API")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 HARRIER                  ║")
	fmt.Println("  ║       Fraud & Risk Assessment Engine      ║")
	fmt.Println("  ║      Low and slow over every request.     ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /assess                      - Assess a request")
	fmt.Println("    GET  /assessments/{id}            - Get assessment by ID")
	fmt.Println("    GET  /assessments                 - List archived assessments")
	fmt.Println("    GET  /stats                       - Aggregate statistics")
	fmt.Println("    GET  /blocklist                   - List active blocks")
	fmt.Println("    POST /blocklist                   - Block an identity or IP")
	fmt.Println("    DELETE /blocklist/{type}/{value}  - Remove a block")
	fmt.Println("    GET  /events                      - Recent security events")
	fmt.Println("    PUT  /reputation                  - Seed reputation scores")
	fmt.Println("    POST /signals/card-verification   - Ingest card outcomes")
	fmt.Println("    GET  /rules                       - List custom rules")
	fmt.Println("    POST /rules                       - Create a custom rule")
	fmt.Println("    POST /rules/reload                - Hot-reload rules")
	fmt.Println("    GET  /ws/alerts                   - Live alert stream")
	fmt.Println("    GET  /health                      - Health check")
	fmt.Println("    GET  /metrics                     - Prometheus metrics")
	fmt.Println()
}

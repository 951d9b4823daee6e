// Shrike - Phishing URL analysis that deploys in 60 seconds.
// Copyright (c) 2025 opensource.security
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opensource-security/shrike/internal/api"
	"github.com/opensource-security/shrike/internal/brand"
	"github.com/opensource-security/shrike/internal/bus"
	"github.com/opensource-security/shrike/internal/cache"
	"github.com/opensource-security/shrike/internal/domain"
	"github.com/opensource-security/shrike/internal/pipeline"
	"github.com/opensource-security/shrike/internal/registration"
	"github.com/opensource-security/shrike/internal/repository"
	"github.com/opensource-security/shrike/internal/risk"
	"github.com/opensource-security/shrike/internal/rules"
	"github.com/opensource-security/shrike/internal/urlinfo"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load .env if present; real env vars win
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded environment from .env")
	}

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SHRIKE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting shrike",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
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

	// Initialize Alert Rule Engine
	rulesEngine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer rulesEngine.Close()

	// Load alert rules from database (no hardcoded defaults - configure via API)
	loadRulesFromDatabase(ctx, repo, rulesEngine)
	slog.Info("rule engine initialized", "rules_count", rulesEngine.RulesCount())

	// Brand list: built-in defaults unless a brands file is configured
	var matcher *brand.Matcher
	if cfg.Pipeline.BrandsFile != "" {
		brands, err := brand.LoadBrandsFile(cfg.Pipeline.BrandsFile)
		if err != nil {
			slog.Warn("failed to load brands file, using built-in list",
				"path", cfg.Pipeline.BrandsFile, "error", err)
		} else {
			matcher = brand.NewMatcher(brands)
			slog.Info("brand list loaded", "path", cfg.Pipeline.BrandsFile, "count", len(brands))
		}
	}

	// Scoring weights: reference table plus optional file overrides
	riskEngine := risk.NewEngine()
	if cfg.Pipeline.WeightsFile != "" {
		weights, err := risk.LoadWeightsFile(cfg.Pipeline.WeightsFile)
		if err != nil {
			slog.Warn("failed to load weights file, using reference weights",
				"path", cfg.Pipeline.WeightsFile, "error", err)
		} else {
			if rejected := riskEngine.UpdateWeights(weights); len(rejected) > 0 {
				slog.Warn("weights file contains unknown factor kinds", "rejected", rejected)
			}
			slog.Info("scoring weights loaded", "path", cfg.Pipeline.WeightsFile)
		}
	}

	// Initialize analysis pipeline
	p := pipeline.New(pipeline.Config{
		Decomposer:      urlinfo.NewDecomposer(nil),
		Matcher:         matcher,
		Source:          registration.NewWhoisSource(cfg.Pipeline.LookupTimeout),
		Engine:          riskEngine,
		Cache:           cacheImpl,
		Repo:            repo,
		Bus:             busImpl,
		Alerts:          rulesEngine,
		LookupTimeout:   cfg.Pipeline.LookupTimeout,
		Concurrency:     cfg.Pipeline.WorkerConcurrency,
		RegistrationTTL: cfg.Cache.RegistrationTTL,
	})
	slog.Info("analysis pipeline initialized",
		"lookup_timeout", cfg.Pipeline.LookupTimeout,
		"concurrency", cfg.Pipeline.WorkerConcurrency,
	)

	// Initialize Server
	srv := api.NewServer(cfg.Server, p, repo, cacheImpl, rulesEngine, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("shrike is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("shrike shutdown complete")
}

// applyEnvOverrides layers SHRIKE_* environment variables over cfg.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("SHRIKE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := envInt("SHRIKE_PORT"); v > 0 {
		cfg.Server.Port = v
	}

	if v := os.Getenv("SHRIKE_DB_DRIVER"); v != "" {
		cfg.Repository.Driver = v
	}
	if v := os.Getenv("SHRIKE_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("SHRIKE_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := envInt("SHRIKE_POSTGRES_PORT"); v > 0 {
		cfg.Repository.PostgresPort = v
	}
	if v := os.Getenv("SHRIKE_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("SHRIKE_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("SHRIKE_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("SHRIKE_POSTGRES_SSLMODE"); v != "" {
		cfg.Repository.PostgresSSLMode = v
	}

	if v := os.Getenv("SHRIKE_CACHE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := os.Getenv("SHRIKE_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("SHRIKE_REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := envDuration("SHRIKE_REGISTRATION_TTL"); v > 0 {
		cfg.Cache.RegistrationTTL = v
	}

	if v := os.Getenv("SHRIKE_BUS"); v != "" {
		cfg.EventBus.Type = v
	}
	if v := os.Getenv("SHRIKE_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("SHRIKE_NATS_TOKEN"); v != "" {
		cfg.EventBus.NATSToken = v
	}

	if v := os.Getenv("SHRIKE_BRANDS_FILE"); v != "" {
		cfg.Pipeline.BrandsFile = v
	}
	if v := os.Getenv("SHRIKE_WEIGHTS_FILE"); v != "" {
		cfg.Pipeline.WeightsFile = v
	}
	if v := envDuration("SHRIKE_LOOKUP_TIMEOUT"); v > 0 {
		cfg.Pipeline.LookupTimeout = v
	}
	if v := envInt("SHRIKE_CONCURRENCY"); v > 0 {
		cfg.Pipeline.WorkerConcurrency = v
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid integer env var", "key", key, "value", v)
		return 0
	}
	return n
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring invalid duration env var", "key", key, "value", v)
		return 0
	}
	return d
}

// loadRulesFromDatabase loads alert rules from the database into the engine.
// All rules must be configured via POST /rules API - no hardcoded defaults.
// Stored data never blocks startup: list failures and rules that no longer
// compile are logged and skipped.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.Engine) {
	dbRules, err := repo.ListAlertRules(ctx)
	if err != nil {
		slog.Warn("failed to list alert rules from database", "error", err)
		return // Start with empty rules - they can be added via API
	}

	if len(dbRules) == 0 {
		slog.Info("no alert rules in database - configure via POST /rules API")
		return
	}

	loaded := 0
	for _, rule := range dbRules {
		if !rule.Enabled {
			continue
		}
		if err := engine.LoadRule(rule); err != nil {
			slog.Warn("skipping alert rule that failed to compile",
				"id", rule.ID, "name", rule.Name, "error", err)
			continue
		}
		loaded++
	}
	slog.Info("loaded alert rules from database", "loaded", loaded, "total", len(dbRules))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 SHRIKE                   ║")
	fmt.Println("  ║       Phishing URL Risk Analyzer          ║")
	fmt.Println("  ║      Every link gets impaled first.       ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze           - Analyze a single URL")
	fmt.Println("    POST /analyze/batch     - Analyze a batch of URLs")
	fmt.Println("    GET  /analyses          - List recent analyses")
	fmt.Println("    GET  /analyses/{id}     - Get analysis by ID")
	fmt.Println("    GET  /weights           - Show scoring weights")
	fmt.Println("    PUT  /weights           - Adjust scoring weights")
	fmt.Println("    GET  /brands            - List protected brands")
	fmt.Println("    GET  /rules             - List alert rules")
	fmt.Println("    POST /rules             - Create an alert rule")
	fmt.Println("    POST /rules/reload      - Hot-reload rules from database")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println()
}

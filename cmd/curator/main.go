// Package main is the entry point for the curator admin console server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pitabwire/curator/internal/action"
	"github.com/pitabwire/curator/internal/backend"
	"github.com/pitabwire/curator/internal/config"
	"github.com/pitabwire/curator/internal/editor"
	"github.com/pitabwire/curator/internal/listing"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/internal/observability"
	"github.com/pitabwire/curator/internal/preview"
	"github.com/pitabwire/curator/internal/schema"
	"github.com/pitabwire/curator/internal/session"
	"github.com/pitabwire/curator/internal/transport"
	"github.com/pitabwire/curator/internal/valuetype"
	"github.com/pitabwire/curator/internal/wizard"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Step 1: Parse CLI flags.
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Step 2: Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	// Step 3: Initialize telemetry (logger, tracer, metrics).
	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "curator", version)
	if err != nil {
		logger.Fatal("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Step 4: Load console definitions, validate, build registry.
	loader := schema.NewLoader()
	defs, err := loader.LoadAll(cfg.Definitions.Directories)
	if err != nil {
		logger.Fatal("definition loading failed", zap.Error(err))
		return 1
	}

	validator := schema.NewValidator()
	verrs := validator.Validate(defs)
	if len(verrs) > 0 {
		for _, ve := range verrs {
			logger.Error("definition validation error", zap.String("error", ve.Error()))
		}
		logger.Fatal("definition validation failed", zap.Int("errors", len(verrs)))
		return 1
	}

	registry := schema.NewRegistry(defs)

	// Step 5: Build the upstream client and value-type registry.
	client := backend.NewClient(cfg.Upstream)
	types := valuetype.NewRegistry()

	// Step 6: Build the foreign-key label cache.
	labelCache, redisClient, err := buildLabelCache(ctx, cfg.Lookup, logger)
	if err != nil {
		logger.Fatal("label cache initialization failed", zap.Error(err))
		return 1
	}

	// Step 7: Build the wizard draft store (optional).
	draftStore, draftStoreCloser, err := buildDraftStore(ctx, cfg.Wizard, logger)
	if err != nil {
		logger.Fatal("draft store initialization failed", zap.Error(err))
		return 1
	}

	// Step 8: Build providers.
	resolver := metadata.NewResolver(client, registry, cfg.Metadata.Cache.TTL, cfg.Metadata.Cache.MaxEntries)
	enricher := listing.NewEnricher(client, labelCache)
	engine := listing.NewEngine(client, enricher, cfg.Listing)
	ed := editor.NewEditor(client, client, types)
	dispatcher := action.NewDispatcher(client, ed)
	viewer := preview.NewViewer(client, enricher, types)
	composer := session.NewComposer(registry, client, slog.Default())

	var wizardEngine *wizard.Engine
	if cfg.Wizard.Enabled && draftStore != nil {
		wizardEngine = wizard.NewEngine(draftStore, types, client, cfg.Wizard.DraftTTL)
	}

	// Step 9: Build readiness checks using data known at startup.
	readinessChecks := observability.ReadinessChecks{
		DefinitionsLoaded: func() bool { return len(registry.AllOverlays()) > 0 || registry.Checksum() != "" },
	}
	if draftStore != nil {
		if hc, ok := draftStore.(observability.HealthChecker); ok {
			readinessChecks.DraftStore = hc
		}
	}
	if hc, ok := labelCache.(observability.HealthChecker); ok {
		readinessChecks.LabelCache = hc
	}

	// Step 10: Build HTTP router.
	router := transport.NewRouter(transport.Dependencies{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Resolver:   resolver,
		Listing:    engine,
		Editor:     ed,
		Dispatcher: dispatcher,
		Viewer:     viewer,
		Session:    composer,
		Wizard:     wizardEngine,
		Uploader:   client,
		Readiness:  readinessChecks,
	})

	handler := observability.TracingMiddleware(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Step 11: Start background tasks.
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	if wizardEngine != nil {
		go runDraftSweeper(bgCtx, wizardEngine, cfg.Wizard.DraftTTL, logger)
	}

	// Step 12: Start HTTP server.
	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("definitions", len(defs)),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	// Graceful shutdown sequence.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Cancel background tasks.
	bgCancel()

	// Close stores and caches.
	if draftStoreCloser != nil {
		draftStoreCloser()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", zap.Error(err))
		}
	}

	// Flush telemetry.
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildLabelCache creates the foreign-key label cache based on config. The
// returned redis client is non-nil only for the redis driver and must be
// closed on shutdown.
func buildLabelCache(ctx context.Context, cfg config.LookupCacheConfig, logger *zap.Logger) (listing.LabelCache, *redis.Client, error) {
	switch cfg.Driver {
	case "memory", "":
		return listing.NewMemoryLabelCache(cfg.Cache.TTL, cfg.Cache.MaxEntries), nil, nil
	case "redis":
		addr := os.Getenv(cfg.AddrEnv)
		if addr == "" {
			logger.Warn("redis address not configured, using in-memory label cache")
			return listing.NewMemoryLabelCache(cfg.Cache.TTL, cfg.Cache.MaxEntries), nil, nil
		}

		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("label cache: ping redis: %w", err)
		}

		logger.Info("using redis label cache", zap.String("addr", addr))
		return listing.NewRedisLabelCache(client, cfg.Cache.TTL), client, nil
	default:
		return nil, nil, fmt.Errorf("unsupported lookup driver: %q", cfg.Driver)
	}
}

// buildDraftStore creates the wizard draft store based on config.
// Returns nil store and closer if the wizard is disabled.
func buildDraftStore(ctx context.Context, cfg config.WizardConfig, logger *zap.Logger) (wizard.Store, func(), error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	switch cfg.Store.Driver {
	case "memory":
		logger.Info("using in-memory draft store")
		return wizard.NewMemoryStore(), nil, nil
	case "postgres", "":
		dsn := os.Getenv(cfg.Store.DSNEnv)
		if dsn == "" && cfg.Store.DSNEnv != "" {
			return nil, nil, fmt.Errorf("draft store: %s environment variable not set", cfg.Store.DSNEnv)
		}
		if dsn == "" {
			logger.Warn("draft store DSN not configured, using in-memory store")
			return wizard.NewMemoryStore(), nil, nil
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("draft store: parse DSN: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Store.MaxConns)
		poolCfg.MaxConnLifetime = cfg.Store.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("draft store: connect: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("draft store: ping: %w", err)
		}

		return wizard.NewPgStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported draft store driver: %q", cfg.Store.Driver)
	}
}

// runDraftSweeper periodically removes expired wizard drafts.
func runDraftSweeper(ctx context.Context, engine *wizard.Engine, ttl time.Duration, logger *zap.Logger) {
	interval := ttl / 4
	if interval <= 0 || interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := engine.Sweep(ctx)
			if err != nil {
				logger.Error("draft sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("expired drafts removed", zap.Int("count", removed))
			}
		}
	}
}

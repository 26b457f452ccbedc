package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/inkwell-cms/inkgate/internal/api"
	"github.com/inkwell-cms/inkgate/internal/cache"
	"github.com/inkwell-cms/inkgate/internal/config"
	"github.com/inkwell-cms/inkgate/internal/gate"
	"github.com/inkwell-cms/inkgate/internal/identity"
	"github.com/inkwell-cms/inkgate/internal/ratelimit"
	"github.com/inkwell-cms/inkgate/internal/registry"
	"github.com/inkwell-cms/inkgate/internal/server"
	"github.com/inkwell-cms/inkgate/internal/storage"
	memorystore "github.com/inkwell-cms/inkgate/internal/storage/memory"
	"github.com/inkwell-cms/inkgate/internal/storage/sqlite"
	"github.com/inkwell-cms/inkgate/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("INKGATE_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	shutdownTracer, err := telemetry.Setup(ctx, "inkgate", cfg.Telemetry.SampleRatio, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	var store storage.Store
	switch cfg.Storage.Type {
	case "memory":
		store = memorystore.New()
	default:
		store, err = sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
	}
	defer store.Close()

	// Redis, when configured, backs both the response cache and the rate
	// limit counters so several instances share state. Without it the gate
	// falls back to per-process stores.
	var (
		counterStore ratelimit.CounterStore
		caches       cache.Strategies
	)
	memCache := cache.NewMemory()
	memCache.StartJanitor(ctx, time.Minute)
	caches.InMemory = memCache

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		caches.Redis = cache.NewRedis(rdb)
		counterStore = ratelimit.NewRedisStore(rdb)
		logger.Info("using redis for cache and rate limiting", slog.String("addr", cfg.Redis.Addr))
	} else {
		memCounters := ratelimit.NewMemoryStore()
		memCounters.StartJanitor(ctx, time.Minute, time.Minute)
		counterStore = memCounters
		logger.Info("redis not configured, using in-process stores")
	}

	regCache := cache.NewMemory()
	regCache.StartJanitor(ctx, time.Minute)
	reg := registry.New(store, logger,
		registry.WithCache(regCache, cfg.Gate.TTL()))

	verifier := identity.NewStoreVerifier(store, store)
	resolver := identity.NewResolver(verifier, verifier, store, logger)
	limiter := ratelimit.New(counterStore)

	gk := gate.New(reg, resolver, limiter, caches, store, logger,
		gate.WithPublicPaths(cfg.Gate.PublicPaths))

	srv := server.New(cfg.Server.Port, logger, gk, cfg.Server.Timeout())

	api.NewPostsHandler(store, logger).Mount(srv.Router)
	api.NewRolesHandler(store, logger).Mount(srv.Router)
	api.NewTokensHandler(store, logger).Mount(srv.Router)
	api.NewEndpointsHandler(store, logger).Mount(srv.Router)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	logger.Info("inkgate started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Type),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Server shutdown complete")
}

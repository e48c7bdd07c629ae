package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/recall-dev/recall/internal/admin"
	"github.com/recall-dev/recall/internal/agent"
	"github.com/recall-dev/recall/internal/api"
	"github.com/recall-dev/recall/internal/auth"
	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/database"
	"github.com/recall-dev/recall/internal/embedding"
	"github.com/recall-dev/recall/internal/memory"
	"github.com/recall-dev/recall/internal/ratelimit"
	iredis "github.com/recall-dev/recall/internal/redis"
	"github.com/recall-dev/recall/internal/searchcache"
	"github.com/recall-dev/recall/internal/server"
	"github.com/recall-dev/recall/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if cfg.DB.AutoMigrate {
		slog.Info("running database migrations", "path", cfg.DB.MigrationsPath)
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("auto-migration failed", "error", err)
			os.Exit(1)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	embedder, err := embedding.New(embedding.Config{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dim,
	})
	if err != nil {
		slog.Error("constructing embedding provider", "error", err)
		os.Exit(1)
	}

	store := storage.New(pool, storage.Thresholds{
		MinSimilarity:          cfg.Similarity.Min,
		DuplicateThreshold:     cfg.Similarity.Duplicate,
		AutoDuplicateThreshold: cfg.Similarity.AutoDuplicate,
	})

	limiter := ratelimit.New(redisClient)
	cache := searchcache.New(redisClient, cfg.Similarity.SearchCacheTTL)

	agentSvc := agent.NewService(store)
	agentHandler := agent.NewHandler(agentSvc, store, limiter)

	memorySvc := memory.NewService(store, embedder, limiter, cache, memory.WriteConfig{
		MinContentLength: cfg.Write.MinContentLength,
		MinTags:          cfg.Write.MinTags,
		MaxTags:          cfg.Write.MaxTags,
	})
	memoryHandler := memory.NewHandler(memorySvc)

	adminSvc := admin.NewService(store)
	adminHandler := admin.NewHandler(adminSvc)

	authMiddleware := auth.Middleware(store)

	router := api.NewRouter(pool, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}, api.HandlerSet{
		RegisterAgent: agentHandler.Register,

		WriteMemory:  memoryHandler.Write,
		SearchMemory: memoryHandler.Search,
		GetMemory:    memoryHandler.Get,

		AdminHeartbeat:  adminHandler.Heartbeat,
		AdminQuarantine: adminHandler.Quarantine,

		AuthMiddleware: authMiddleware,
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

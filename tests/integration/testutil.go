//go:build integration

package integration

import (
	"context"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/recall-dev/recall/internal/admin"
	"github.com/recall-dev/recall/internal/agent"
	"github.com/recall-dev/recall/internal/api"
	"github.com/recall-dev/recall/internal/auth"
	"github.com/recall-dev/recall/internal/embedding"
	"github.com/recall-dev/recall/internal/memory"
	"github.com/recall-dev/recall/internal/ratelimit"
	"github.com/recall-dev/recall/internal/searchcache"
	"github.com/recall-dev/recall/internal/storage"
)

// TestEnv wires the full stack against real Postgres+pgvector and Redis
// containers, the way the production binary does in cmd/api/main.go.
type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Store       *storage.Store
	Server      *httptest.Server
}

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "pgvector/pgvector:0.8.1-pg16",
		tcpostgres.WithDatabase("recall_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("reading postgres connection string: %v", err)
	}

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisURI, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("reading redis connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	migrationsPath := findMigrationsPath()
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	redisOpts, err := redis.ParseURL(redisURI)
	if err != nil {
		t.Fatalf("parsing redis connection string: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	t.Cleanup(func() { redisClient.Close() })

	store := storage.New(pool, storage.Thresholds{
		MinSimilarity:          0.55,
		DuplicateThreshold:     0.92,
		AutoDuplicateThreshold: 0.97,
	})

	embedder := embedding.NewStub(1536)
	limiter := ratelimit.New(redisClient)
	cache := searchcache.New(redisClient, 120*time.Second)

	agentSvc := agent.NewService(store)
	agentHandler := agent.NewHandler(agentSvc, store, limiter)

	memorySvc := memory.NewService(store, embedder, limiter, cache, memory.WriteConfig{
		MinContentLength: 10,
		MinTags:          2,
		MaxTags:          6,
	})
	memoryHandler := memory.NewHandler(memorySvc)

	adminSvc := admin.NewService(store)
	adminHandler := admin.NewHandler(adminSvc)

	router := api.NewRouter(pool, api.RouterConfig{}, api.HandlerSet{
		RegisterAgent: agentHandler.Register,

		WriteMemory:  memoryHandler.Write,
		SearchMemory: memoryHandler.Search,
		GetMemory:    memoryHandler.Get,

		AdminHeartbeat:  adminHandler.Heartbeat,
		AdminQuarantine: adminHandler.Quarantine,

		AuthMiddleware: auth.Middleware(store),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	return &TestEnv{Pool: pool, RedisClient: redisClient, Store: store, Server: server}
}

func findMigrationsPath() string {
	for _, p := range []string{"../../migrations", "../../../migrations"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// PromoteTrust raises an agent's trust_level directly, bypassing the normal
// (out of scope) promotion path so admin-gated tests can exercise trust >= 2.
func (e *TestEnv) PromoteTrust(t *testing.T, agentID string, level int) {
	t.Helper()
	if _, err := e.Pool.Exec(context.Background(),
		`UPDATE agents SET trust_level = $1 WHERE id = $2`, level, agentID); err != nil {
		t.Fatalf("promoting trust: %v", err)
	}
}

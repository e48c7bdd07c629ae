package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recall-dev/recall/internal/database"
	mw "github.com/recall-dev/recall/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go. Using bare
// http.HandlerFunc fields (rather than the concrete *agent.Handler etc.)
// keeps internal/api from importing the domain packages, which themselves
// import internal/api for JSON/error helpers.
type HandlerSet struct {
	RegisterAgent http.HandlerFunc

	WriteMemory  http.HandlerFunc
	SearchMemory http.HandlerFunc
	GetMemory    http.HandlerFunc

	AdminHeartbeat  http.HandlerFunc
	AdminQuarantine http.HandlerFunc

	// AuthMiddleware resolves a bearer token to the calling agent (§4.9).
	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
}

func NewRouter(pool *pgxpool.Pool, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy", "database": "healthy"}
		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		JSON(w, status, health)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Registration is the one unauthenticated write surface; it does
		// its own per-IP rate limiting internally (§6).
		r.Post("/agents/register", h.RegisterAgent)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Post("/memory", h.WriteMemory)
			r.Get("/memory/search", h.SearchMemory)
			r.Get("/memory/{idOrShort}", h.GetMemory)

			r.Post("/admin/heartbeat", h.AdminHeartbeat)
			r.Post("/admin/quarantine/{agentID}", h.AdminQuarantine)
		})
	})

	return r
}

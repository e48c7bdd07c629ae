package agent

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/recall-dev/recall/internal/api"
	"github.com/recall-dev/recall/internal/metrics"
	"github.com/recall-dev/recall/internal/ratelimit"
	"github.com/recall-dev/recall/internal/storage"
)

// RegisterRequest is the /agents/register request body (§6).
type RegisterRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type registerResponseAgent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type registerResponse struct {
	Agent  registerResponseAgent `json:"agent"`
	APIKey string                `json:"api_key"`
}

// Handler serves /agents/register: the only unauthenticated write surface,
// gated by the global write switch and a per-IP rate limit (§6).
type Handler struct {
	svc      *Service
	store    *storage.Store
	limiter  *ratelimit.Limiter
	validate *validator.Validate
}

func NewHandler(svc *Service, store *storage.Store, limiter *ratelimit.Limiter) *Handler {
	return &Handler{svc: svc, store: store, limiter: limiter, validate: validator.New()}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	writeEnabled, err := h.store.IsWriteEnabled(r.Context())
	if err != nil {
		slog.Error("checking write-enabled flag", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if !writeEnabled {
		api.HandleError(w, api.ErrWritesDisabled)
		return
	}

	ip := clientIP(r)
	allowed, retryAfter, err := h.limiter.AllowIP(r.Context(), ip, "agents:register", ratelimit.RegistrationIPWindow)
	if err != nil {
		slog.Warn("rate limiter error, failing open", "error", err, "ip", ip)
	} else if !allowed {
		metrics.RateLimitRejectionsTotal.WithLabelValues("agents:register").Inc()
		api.HandleError(w, &api.RateLimitedError{RetryAfter: retryAfter})
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationErrorWithFields(err.Error(), api.ValidationFields(err)))
		return
	}

	a, rawKey, err := h.svc.Register(r.Context(), req.Name)
	if err != nil {
		slog.Error("registering agent", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, registerResponse{
		Agent:  registerResponseAgent{ID: a.ID, Name: a.Name},
		APIKey: rawKey,
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

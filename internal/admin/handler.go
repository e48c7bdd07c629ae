package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/recall-dev/recall/internal/api"
	"github.com/recall-dev/recall/internal/auth"
	"github.com/recall-dev/recall/internal/storage"
)

type heartbeatResponse struct {
	Success            bool      `json:"success"`
	Heartbeat          time.Time `json:"heartbeat"`
	GlobalWriteEnabled bool      `json:"global_write_enabled"`
}

type quarantineResponse struct {
	Success bool   `json:"success"`
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
}

// Handler serves /admin/heartbeat and /admin/quarantine/{agent_id} (§6).
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	ag := auth.Principal(r.Context())
	if ag == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	heartbeat, writeEnabled, err := h.svc.Heartbeat(r.Context(), ag.TrustLevel)
	if err != nil {
		if errors.Is(err, ErrInsufficientTrust) {
			api.HandleError(w, api.ErrForbidden)
			return
		}
		slog.Error("admin heartbeat", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, heartbeatResponse{Success: true, Heartbeat: heartbeat, GlobalWriteEnabled: writeEnabled})
}

func (h *Handler) Quarantine(w http.ResponseWriter, r *http.Request) {
	ag := auth.Principal(r.Context())
	if ag == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		api.HandleError(w, api.NewValidationErrorWithFields("invalid agent_id", []string{"agent_id"}))
		return
	}

	if err := h.svc.Quarantine(r.Context(), ag.TrustLevel, targetID); err != nil {
		switch {
		case errors.Is(err, ErrInsufficientTrust):
			api.HandleError(w, api.ErrForbidden)
		case errors.Is(err, storage.ErrNotFound):
			api.HandleError(w, api.NewNotFoundError("agent not found"))
		default:
			slog.Error("quarantining agent", "error", err)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	api.JSON(w, http.StatusOK, quarantineResponse{Success: true, AgentID: targetID.String(), Status: "quarantined"})
}

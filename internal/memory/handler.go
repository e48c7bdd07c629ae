package memory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/recall-dev/recall/internal/api"
	"github.com/recall-dev/recall/internal/auth"
	"github.com/recall-dev/recall/internal/storage"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Handler serves /memory, /memory/search, and /memory/{id-or-short} (§6).
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) Write(w http.ResponseWriter, r *http.Request) {
	ag := auth.Principal(r.Context())
	if ag == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationErrorWithFields(err.Error(), api.ValidationFields(err)))
		return
	}

	resp, err := h.svc.Write(r.Context(), ag, req)
	if err != nil {
		h.handleServiceError(w, err, "writing memory")
		return
	}

	api.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ag := auth.Principal(r.Context())
	if ag == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" || utf8.RuneCountInString(q) > 500 {
		api.HandleError(w, api.NewValidationErrorWithFields("q must be 1..500 characters", []string{"q"}))
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxSearchLimit {
			api.HandleError(w, api.NewValidationErrorWithFields("limit must be 1..50", []string{"limit"}))
			return
		}
		limit = v
	}

	resp, err := h.svc.Search(r.Context(), ag, q, limit)
	if err != nil {
		h.handleServiceError(w, err, "searching memories")
		return
	}

	api.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ag := auth.Principal(r.Context())
	if ag == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	handle := chi.URLParam(r, "idOrShort")

	detail, err := h.svc.Get(r.Context(), ag, handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			api.HandleError(w, api.NewNotFoundError("memory not found"))
			return
		}
		h.handleServiceError(w, err, "getting memory")
		return
	}

	api.JSON(w, http.StatusOK, GetResponse{Success: true, Memory: *detail})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error, action string) {
	var rlErr *api.RateLimitedError
	var valErr *api.ValidationError
	var appErr *api.AppError
	if errors.As(err, &rlErr) || errors.As(err, &valErr) || errors.As(err, &appErr) {
		api.HandleError(w, err)
		return
	}
	slog.Error(action, "error", err)
	api.HandleError(w, api.ErrInternalServer)
}

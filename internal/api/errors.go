package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// AppError carries an HTTP status alongside a message. Handlers return it
// (or a wrapping error) and HandleError dispatches the correct response.
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrForbidden      = &AppError{Code: http.StatusForbidden, Message: "forbidden"}
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrConflict       = &AppError{Code: http.StatusConflict, Message: "conflict"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrValidation     = &AppError{Code: http.StatusUnprocessableEntity, Message: "validation error"}

	// ErrWritesDisabled is returned while the global write switch is off (§4.8).
	ErrWritesDisabled = &AppError{Code: http.StatusServiceUnavailable, Message: "writes are currently disabled"}

	// ErrUpstreamEmbedding surfaces an embedding-provider failure without ever
	// opening a storage transaction (§7).
	ErrUpstreamEmbedding = &AppError{Code: http.StatusBadGateway, Message: "embedding provider unavailable"}
)

// RateLimitedError carries the retry-after seconds a 429 response must
// expose both as a header and as a body field (§4.4, §6).
type RateLimitedError struct {
	RetryAfter int
}

func (e *RateLimitedError) Error() string { return "rate limit exceeded" }

// ValidationError is a 422 that, unlike a plain AppError, can carry the
// names of the offending fields (§7) for the client to act on directly.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string { return e.Message }

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewConflictError(msg string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: msg}
}

// NewValidationError builds a 422 with no field detail, for preconditions
// that don't reduce to a single offending request field.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// NewValidationErrorWithFields builds a 422 naming the offending fields,
// e.g. those reported by validator.ValidationErrors.
func NewValidationErrorWithFields(msg string, fields []string) *ValidationError {
	return &ValidationError{Message: msg, Fields: fields}
}

// ValidationFields extracts the offending struct field names from a
// validator.ValidationErrors, for handlers turning a struct-tag validation
// failure into a NewValidationErrorWithFields call.
func ValidationFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

// HandleError dispatches err to the correct JSON error response. Rate-limit
// errors additionally set the Retry-After header per §6/§7.
func HandleError(w http.ResponseWriter, err error) {
	var rlErr *RateLimitedError
	if errors.As(err, &rlErr) {
		w.Header().Set("Retry-After", strconv.Itoa(rlErr.RetryAfter))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(struct {
			Error      string `json:"error"`
			RetryAfter int    `json:"retry_after"`
		}{Error: "rate limit exceeded", RetryAfter: rlErr.RetryAfter})
		return
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		if len(valErr.Fields) > 0 {
			JSONValidationError(w, valErr.Message, valErr.Fields)
		} else {
			JSONErrorMessage(w, http.StatusUnprocessableEntity, valErr.Message)
		}
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorMessage(w, appErr.Code, appErr.Message)
		return
	}

	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}

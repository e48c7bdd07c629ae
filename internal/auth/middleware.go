// Package auth is the authentication gate (C9): resolve a bearer token to
// an agent record, rejecting missing/unknown/disabled credentials.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/recall-dev/recall/internal/agent"
	"github.com/recall-dev/recall/internal/api"
	"github.com/recall-dev/recall/internal/storage"
)

type contextKey string

const principalKey contextKey = "agent_principal"

// Middleware parses the Authorization header, hashes the presented key, and
// looks up the owning agent. Missing/malformed header and unknown hash both
// return 401; a disabled agent returns 403 (§4.9).
func Middleware(store *storage.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			a, err := store.FindAgentByKeyHash(r.Context(), agent.HashAPIKey(parts[1]))
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					api.HandleError(w, api.ErrUnauthorized)
					return
				}
				api.HandleError(w, api.ErrInternalServer)
				return
			}
			if a.DisabledAt != nil {
				api.HandleError(w, api.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, a)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Principal returns the authenticated agent attached to the request context
// by Middleware, or nil if called outside it.
func Principal(ctx context.Context) *storage.Agent {
	a, _ := ctx.Value(principalKey).(*storage.Agent)
	return a
}

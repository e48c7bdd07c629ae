package agent

import (
	"context"
	"fmt"

	"github.com/recall-dev/recall/internal/storage"
)

// Service registers new agents. The global write switch and per-IP rate
// limit are enforced by the caller (the HTTP handler), since both require
// request-scoped information this package has no business holding.
type Service struct {
	store *storage.Store
}

func NewService(store *storage.Store) *Service {
	return &Service{store: store}
}

// Register creates a new agent and returns it alongside the one-time raw
// API key. The raw key is never persisted; only its hash is.
func (s *Service) Register(ctx context.Context, name string) (*Agent, string, error) {
	rawKey, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	a, err := s.store.CreateAgent(ctx, name, HashAPIKey(rawKey))
	if err != nil {
		return nil, "", fmt.Errorf("agent: register: %w", err)
	}

	return &Agent{ID: a.ID.String(), Name: a.Name, TrustLevel: a.TrustLevel, CreatedAt: a.CreatedAt}, rawKey, nil
}

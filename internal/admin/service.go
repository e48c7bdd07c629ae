// Package admin implements the global write switch and per-agent quarantine
// (C8), both restricted to trust_level >= 2 (§4.8).
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recall-dev/recall/internal/storage"
)

// MinAdminTrustLevel is the trust level required to call either operation.
const MinAdminTrustLevel = 2

var ErrInsufficientTrust = errors.New("admin: requires trust_level >= 2")

type Service struct {
	store *storage.Store
}

func NewService(store *storage.Store) *Service {
	return &Service{store: store}
}

// Heartbeat is a liveness check that also re-enables writes after an
// operator-paused period (§4.8).
func (s *Service) Heartbeat(ctx context.Context, callerTrustLevel int) (heartbeat time.Time, globalWriteEnabled bool, err error) {
	if callerTrustLevel < MinAdminTrustLevel {
		return time.Time{}, false, ErrInsufficientTrust
	}

	now := time.Now().UTC()
	if err := s.store.SetConfig(ctx, "last_admin_heartbeat", now.Format(time.RFC3339)); err != nil {
		return time.Time{}, false, fmt.Errorf("admin: heartbeat: %w", err)
	}
	if err := s.store.SetConfig(ctx, "global_write_enabled", "true"); err != nil {
		return time.Time{}, false, fmt.Errorf("admin: heartbeat: %w", err)
	}

	return now, true, nil
}

// Quarantine disables agentID and marks every memory it authored as
// quality = -2, in one transaction. Returns storage.ErrNotFound if the
// agent does not exist.
func (s *Service) Quarantine(ctx context.Context, callerTrustLevel int, agentID uuid.UUID) error {
	if callerTrustLevel < MinAdminTrustLevel {
		return ErrInsufficientTrust
	}
	return s.store.QuarantineAgent(ctx, agentID)
}

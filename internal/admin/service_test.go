package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// Trust-level gating happens before the store is ever touched, so these
// cases exercise Service with a nil *storage.Store — exactly the agents
// who should never reach a persistence call in the first place.

func TestHeartbeat_InsufficientTrust(t *testing.T) {
	svc := NewService(nil)

	for _, trust := range []int{0, 1} {
		_, enabled, err := svc.Heartbeat(context.Background(), trust)
		if !errors.Is(err, ErrInsufficientTrust) {
			t.Fatalf("trust %d: expected ErrInsufficientTrust, got %v", trust, err)
		}
		if enabled {
			t.Fatalf("trust %d: expected globalWriteEnabled=false on rejection", trust)
		}
	}
}

func TestQuarantine_InsufficientTrust(t *testing.T) {
	svc := NewService(nil)

	for _, trust := range []int{0, 1} {
		err := svc.Quarantine(context.Background(), trust, uuid.New())
		if !errors.Is(err, ErrInsufficientTrust) {
			t.Fatalf("trust %d: expected ErrInsufficientTrust, got %v", trust, err)
		}
	}
}

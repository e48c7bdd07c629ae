//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
)

func TestAdminHeartbeat_RequiresTrust(t *testing.T) {
	env := SetupTestEnv(t)
	_, apiKey := registerAgent(t, env, "low-trust-agent")

	resp := doRequest(t, env, "POST", "/api/v1/admin/heartbeat", apiKey, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for trust_level 0, got %d", resp.StatusCode)
	}
}

func TestAdminHeartbeat_PromotedAgentSucceeds(t *testing.T) {
	env := SetupTestEnv(t)
	id, apiKey := registerAgent(t, env, "admin-agent")
	env.PromoteTrust(t, id, 2)

	resp := doRequest(t, env, "POST", "/api/v1/admin/heartbeat", apiKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Success            bool `json:"success"`
		GlobalWriteEnabled bool `json:"global_write_enabled"`
	}
	decodeJSON(t, resp, &body)
	if !body.Success || !body.GlobalWriteEnabled {
		t.Fatalf("unexpected heartbeat response: %+v", body)
	}
}

func TestAdminQuarantine_DisablesAgentAndItsMemories(t *testing.T) {
	env := SetupTestEnv(t)
	adminID, adminKey := registerAgent(t, env, "quarantine-admin")
	env.PromoteTrust(t, adminID, 2)

	targetID, targetKey := registerAgent(t, env, "to-be-quarantined")
	writeResp := doRequest(t, env, "POST", "/api/v1/memory", targetKey, map[string]any{
		"content": "this memory belongs to an agent about to be quarantined",
		"tags":    []string{"quarantine", "test"},
	})
	if writeResp.StatusCode != http.StatusOK {
		t.Fatalf("writing memory before quarantine: status %d", writeResp.StatusCode)
	}

	qResp := doRequest(t, env, "POST", "/api/v1/admin/quarantine/"+targetID, adminKey, nil)
	if qResp.StatusCode != http.StatusOK {
		t.Fatalf("quarantining agent: status %d", qResp.StatusCode)
	}

	// The quarantined agent's own key is still valid for auth (disabled_at
	// gating happens per §4.9), but it should now be rejected as disabled.
	writeAfter := doRequest(t, env, "POST", "/api/v1/memory", targetKey, map[string]any{
		"content": "a write attempt after quarantine should be rejected",
		"tags":    []string{"quarantine", "test"},
	})
	if writeAfter.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for quarantined agent, got %d", writeAfter.StatusCode)
	}

	var notQuarantined int
	if err := env.Pool.QueryRow(context.Background(),
		`SELECT count(*) FROM memories WHERE agent_id = $1 AND quality > -2`, targetID).Scan(&notQuarantined); err != nil {
		t.Fatalf("counting memories: %v", err)
	}
	if notQuarantined != 0 {
		t.Fatalf("expected every memory of the quarantined agent at quality -2, %d are not", notQuarantined)
	}
}

func TestAdminQuarantine_UnknownAgentNotFound(t *testing.T) {
	env := SetupTestEnv(t)
	adminID, adminKey := registerAgent(t, env, "quarantine-admin-2")
	env.PromoteTrust(t, adminID, 2)

	resp := doRequest(t, env, "POST", "/api/v1/admin/quarantine/00000000-0000-0000-0000-000000000000", adminKey, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

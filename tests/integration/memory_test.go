//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestMemoryWriteSearchAndGet(t *testing.T) {
	env := SetupTestEnv(t)
	_, apiKey := registerAgent(t, env, "writer-agent")

	writeResp := doRequest(t, env, "POST", "/api/v1/memory", apiKey, map[string]any{
		"content": "Postgres connection pools must cap max_conns below the server limit.",
		"tags":    []string{"postgres", "ops"},
	})
	if writeResp.StatusCode != http.StatusOK {
		t.Fatalf("writing memory: status %d", writeResp.StatusCode)
	}

	var written struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
		ShortID string `json:"short_id"`
		Status  string `json:"status"`
		Similar []struct {
			Relation string `json:"relation"`
		} `json:"similar"`
	}
	decodeJSON(t, writeResp, &written)
	if !written.Success || written.ID == "" || written.ShortID == "" {
		t.Fatalf("unexpected write response: %+v", written)
	}

	getResp := doRequest(t, env, "GET", "/api/v1/memory/"+written.ShortID, apiKey, nil)
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("getting memory by short id: status %d", getResp.StatusCode)
	}

	searchResp := doRequest(t, env, "GET", "/api/v1/memory/search?q=postgres+connection+pool+limits", apiKey, nil)
	if searchResp.StatusCode != http.StatusOK {
		t.Fatalf("searching memory: status %d", searchResp.StatusCode)
	}
	var searched struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	decodeJSON(t, searchResp, &searched)
	if len(searched.Results) == 0 {
		t.Fatalf("expected at least one search result")
	}
}

func TestMemoryWrite_DuplicateDetection(t *testing.T) {
	env := SetupTestEnv(t)
	id, apiKey := registerAgent(t, env, "dup-agent")
	// trust_level 0 allows only 1 write/minute (§4.4); this test issues two
	// writes back to back, so it needs trust_level 1's 5/minute window.
	env.PromoteTrust(t, id, 1)

	content := "The nightly backup job must finish before the 3am vacuum window starts."
	first := doRequest(t, env, "POST", "/api/v1/memory", apiKey, map[string]any{
		"content": content,
		"tags":    []string{"backups", "postgres"},
	})
	if first.StatusCode != http.StatusOK {
		t.Fatalf("writing first memory: status %d", first.StatusCode)
	}
	decodeJSON(t, first, &struct{}{})

	// The stub embedder returns the same vector for every input, so a
	// second write of near-identical content is a guaranteed self-match
	// above the auto-duplicate threshold.
	second := doRequest(t, env, "POST", "/api/v1/memory", apiKey, map[string]any{
		"content": content + " (restated)",
		"tags":    []string{"backups", "postgres"},
	})
	if second.StatusCode != http.StatusOK {
		t.Fatalf("writing second memory: status %d", second.StatusCode)
	}

	var resp struct {
		Similar []struct {
			Relation string `json:"relation"`
		} `json:"similar"`
	}
	decodeJSON(t, second, &resp)
	if len(resp.Similar) == 0 {
		t.Fatalf("expected the second write to report at least one similar hit")
	}
	if resp.Similar[0].Relation != "duplicate_candidate" {
		t.Fatalf("expected duplicate_candidate relation, got %q", resp.Similar[0].Relation)
	}
}

func TestMemoryWrite_RejectsUnauthenticated(t *testing.T) {
	env := SetupTestEnv(t)
	resp := doRequest(t, env, "POST", "/api/v1/memory", "", map[string]any{
		"content": "no bearer token on this request at all",
		"tags":    []string{"a", "b"},
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

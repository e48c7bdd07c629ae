//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
)

var registrationIPCounter int64

func doRequest(t *testing.T, env *TestEnv, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

// registerAgent registers a new agent from a distinct synthetic source IP
// each call, so the suite's many registrations don't trip the per-IP
// registration rate limit (§4.4) against each other.
func registerAgent(t *testing.T, env *TestEnv, name string) (id, apiKey string) {
	t.Helper()

	b, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		t.Fatalf("marshaling register request: %v", err)
	}

	req, err := http.NewRequest("POST", env.Server.URL+"/api/v1/agents/register", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	n := atomic.AddInt64(&registrationIPCounter, 1)
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.%d.%d", n/256, n%256))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("registering agent: status %d", resp.StatusCode)
	}

	var body struct {
		Agent struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"agent"`
		APIKey string `json:"api_key"`
	}
	decodeJSON(t, resp, &body)
	return body.Agent.ID, body.APIKey
}

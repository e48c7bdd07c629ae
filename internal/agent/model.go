// Package agent owns identity: registering new agents and generating their
// bearer credentials (C9's issuance half; the verification half lives in
// internal/auth).
package agent

import "time"

// Agent is the API-facing projection of storage.Agent.
type Agent struct {
	ID         string
	Name       string
	TrustLevel int
	CreatedAt  time.Time
}

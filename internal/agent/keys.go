package agent

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const keyPrefix = "recall_"

// GenerateAPIKey returns a new bearer credential: "recall_" + 64 hex chars
// (32 random bytes), per §4.9/§6.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("agent: reading random bytes: %w", err)
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}

// HashAPIKey is the one-way digest stored as api_key_hash and compared
// against on every authenticated request.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

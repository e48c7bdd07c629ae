// Package shortid generates the human-shareable handles attached to every
// memory: RCL- followed by 8 characters drawn uniformly from [A-Z0-9].
package shortid

import (
	"crypto/rand"
	"fmt"
)

const (
	prefix   = "RCL-"
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	length   = 8
)

// Generate returns a new short id such as "RCL-7F3K9QZ2". It draws from a
// cryptographic random source; collisions are negligible at expected corpus
// size and are handled by the storage layer's uniqueness constraint and a
// bounded retry, not here.
func Generate() (string, error) {
	// Bytes at or above the largest multiple of len(alphabet) are rejected so
	// that every character is equally likely.
	limit := 256 - 256%len(alphabet)
	buf := make([]byte, length)
	out := make([]byte, 0, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) < limit && len(out) < length {
				out = append(out, alphabet[int(b)%len(alphabet)])
			}
		}
	}
	return prefix + string(out), nil
}

// Package embedding maps text to a fixed-length dense vector via a
// substitutable provider (C1). The HTTP call is treated as a single
// blocking operation retried zero times; failures surface as an
// upstream-dependency error so the caller never opens a storage transaction.
package embedding

import "context"

// Provider maps text to a fixed-length embedding vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

package embedding

import (
	"context"
	"testing"
)

func TestStubProvider_DeterministicAcrossInputs(t *testing.T) {
	p := NewStub(8)

	a, err := p.Embed(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := p.Embed(context.Background(), "completely different text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("expected dimension 8, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical vectors at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "anthropic"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNew_StubProvider(t *testing.T) {
	p, err := New(Config{Provider: "stub", Dimension: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Dimension() != 4 {
		t.Fatalf("expected dimension 4, got %d", p.Dimension())
	}
}

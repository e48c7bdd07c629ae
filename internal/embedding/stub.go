package embedding

import "context"

// stubProvider returns the same fixed vector for every input. This mirrors
// the fake-embedding test fixture used against the reference implementation:
// a constant vector lets dedup/duplicate tests assert deterministic
// similarity without a live provider.
type stubProvider struct {
	dimension int
	model     string
	value     float32
}

// NewStub returns a deterministic Provider for tests: every call to Embed
// returns a vector of length dimension filled with 0.01.
func NewStub(dimension int) Provider {
	return &stubProvider{dimension: dimension, model: "stub-fixed-vector", value: 0.01}
}

func (p *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dimension)
	for i := range vec {
		vec[i] = p.value
	}
	return vec, nil
}

func (p *stubProvider) Dimension() int { return p.dimension }
func (p *stubProvider) Model() string  { return p.model }

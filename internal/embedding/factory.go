package embedding

import "fmt"

// Config is the subset of configuration needed to select and construct a
// Provider. Defined here (rather than importing internal/config) to keep
// this package free of a dependency on the config package.
type Config struct {
	Provider  string // "openai" or "stub"
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// New selects a provider implementation by Config.Provider.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	case "stub":
		return NewStub(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
}

package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// requestTimeout is the deadline for the embedding HTTP call (§5).
const requestTimeout = 30 * time.Second

// OpenAIConfig parameterizes the OpenAI-backed provider.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// openaiProvider calls OpenAI's embeddings endpoint for a single text at a
// time, matching the one-shot blocking contract of §4.1.
type openaiProvider struct {
	client    *openai.Client
	model     string
	dimension int
}

func NewOpenAI(cfg OpenAIConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding: openai api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &openaiProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}, nil
}

func (p *openaiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: openai request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding: openai returned no data")
	}

	vec := resp.Data[0].Embedding
	if p.dimension > 0 && len(vec) != p.dimension {
		return nil, fmt.Errorf("embedding: provider returned dimension %d, expected %d", len(vec), p.dimension)
	}
	return vec, nil
}

func (p *openaiProvider) Dimension() int { return p.dimension }
func (p *openaiProvider) Model() string  { return p.model }

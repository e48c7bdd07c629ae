package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "recall",
			Password: "secret", Name: "recall", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			APIKey:   "sk-test",
			Model:    "text-embedding-3-small",
			Dim:      1536,
		},
		Similarity: SimilarityConfig{Min: 0.55, Duplicate: 0.92, AutoDuplicate: 0.97},
		Write:      WriteConfig{MinContentLength: 80, MinTags: 2, MaxTags: 6},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_DBPasswordRequired(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_EmbeddingProviderInvalid(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "anthropic"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "EMBEDDING_PROVIDER") {
		t.Fatalf("expected EMBEDDING_PROVIDER error, got: %v", err)
	}
}

func TestValidate_EmbeddingAPIKeyRequiredForOpenAI(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.APIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "EMBEDDING_API_KEY") {
		t.Fatalf("expected EMBEDDING_API_KEY error, got: %v", err)
	}
}

func TestValidate_StubProviderDoesNotNeedAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "stub"
	cfg.Embedding.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error for stub provider, got: %v", err)
	}
}

func TestValidate_SimilarityThresholdsMustBeOrdered(t *testing.T) {
	cfg := validConfig()
	cfg.Similarity.Duplicate = 0.5 // below Min
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SIMILARITY_DUPLICATE") {
		t.Fatalf("expected SIMILARITY_DUPLICATE error, got: %v", err)
	}
}

func TestValidate_TagBoundsInvalid(t *testing.T) {
	cfg := validConfig()
	cfg.Write.MinTags = 5
	cfg.Write.MaxTags = 2
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "WRITE_MIN_TAGS") {
		t.Fatalf("expected WRITE_MIN_TAGS error, got: %v", err)
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.DB.Port = 99999
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected port validation errors")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected SERVER_PORT error in: %v", err)
	}
	if !strings.Contains(err.Error(), "DB_PORT") {
		t.Errorf("expected DB_PORT error in: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server:     ServerConfig{Port: 0},
		DB:         DBConfig{Port: 5432},
		Redis:      RedisConfig{Port: 6379},
		Embedding:  EmbeddingConfig{Provider: "bogus"},
		Similarity: SimilarityConfig{},
		Write:      WriteConfig{},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"DB_PASSWORD", "EMBEDDING_PROVIDER", "SERVER_PORT"} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}

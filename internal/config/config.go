package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	Embedding  EmbeddingConfig
	Similarity SimilarityConfig
	Write      WriteConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins []string
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	AutoMigrate    bool
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EmbeddingConfig selects and parameterizes the embedding provider (C1).
type EmbeddingConfig struct {
	Provider string // "openai" or "stub"
	APIKey   string
	BaseURL  string
	Model    string
	Dim      int
}

// SimilarityConfig holds the dedup/search thresholds used by the write and
// search pipelines (§4.6, §4.7 of the spec).
type SimilarityConfig struct {
	Min            float64
	Duplicate      float64
	AutoDuplicate  float64
	SearchCacheTTL time.Duration
}

type WriteConfig struct {
	MinContentLength int
	MinTags          int
	MaxTags          int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               k.String("server.host"),
			Port:               k.Int("server.port"),
			CORSAllowedOrigins: splitCSV(k.String("server.cors.allowed.origins")),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			AutoMigrate:    k.Bool("db.auto.migrate"),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		Embedding: EmbeddingConfig{
			Provider: k.String("embedding.provider"),
			APIKey:   k.String("embedding.api.key"),
			BaseURL:  k.String("embedding.base.url"),
			Model:    k.String("embedding.model"),
			Dim:      k.Int("embedding.dim"),
		},
		Similarity: SimilarityConfig{
			Min:           k.Float64("similarity.min"),
			Duplicate:     k.Float64("similarity.duplicate"),
			AutoDuplicate: k.Float64("similarity.auto.duplicate"),
		},
		Write: WriteConfig{
			MinContentLength: k.Int("write.min.content.length"),
			MinTags:          k.Int("write.min.tags"),
			MaxTags:          k.Int("write.max.tags"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	applyDefaults(cfg)

	ttlStr := k.String("similarity.search.cache.ttl")
	if ttlStr == "" {
		ttlStr = "120s"
	}
	cfg.Similarity.SearchCacheTTL, err = time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("parsing similarity search cache ttl: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "recall"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "recall"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dim == 0 {
		cfg.Embedding.Dim = 1536
	}
	if cfg.Similarity.Min == 0 {
		cfg.Similarity.Min = 0.55
	}
	if cfg.Similarity.Duplicate == 0 {
		cfg.Similarity.Duplicate = 0.92
	}
	if cfg.Similarity.AutoDuplicate == 0 {
		cfg.Similarity.AutoDuplicate = 0.97
	}
	if cfg.Write.MinContentLength == 0 {
		cfg.Write.MinContentLength = 80
	}
	if cfg.Write.MinTags == 0 {
		cfg.Write.MinTags = 2
	}
	if cfg.Write.MaxTags == 0 {
		cfg.Write.MaxTags = 6
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package searchcache memoizes (query, limit) -> result rows for 120s (C5).
// The cache stores pre-projection rows so identical queries share entries
// across agents; retrieval-event logging is never served from here — it
// must run on every search call regardless of cache outcome (§4.5, §4.7).
package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyDigestLen = 16

// Row is the pre-projection shape stored in the cache: one candidate from a
// vector_search call, before author-name attachment and response shaping.
type Row struct {
	MemoryID       string    `json:"memory_id"`
	ShortID        string    `json:"short_id"`
	AgentID        string    `json:"agent_id"`
	AuthorName     string    `json:"author_name"`
	Content        string    `json:"content"`
	Tags           []string  `json:"tags"`
	SourceURL      *string   `json:"source_url,omitempty"`
	Similarity     float64   `json:"similarity"`
	RetrievalCount int       `json:"retrieval_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Cache is a short-TTL memoization layer backed by Redis strings.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func New(client redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	return &Cache{client: client, ttl: ttl}
}

// Key derives the cache key from (q, limit): search_cache: + a hex digest
// truncated to 16 chars of "q:limit" (§4.5).
func Key(q string, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", q, limit)))
	return "search_cache:" + hex.EncodeToString(sum[:])[:keyDigestLen]
}

// Get returns the cached rows for (q, limit), or ok=false on a miss.
func (c *Cache) Get(ctx context.Context, q string, limit int) (rows []Row, ok bool, err error) {
	raw, err := c.client.Get(ctx, Key(q, limit)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("searchcache: get: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, false, fmt.Errorf("searchcache: unmarshal: %w", err)
	}
	return rows, true, nil
}

// Put stores rows under the (q, limit) key with the cache's TTL.
func (c *Cache) Put(ctx context.Context, q string, limit int, rows []Row) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("searchcache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, Key(q, limit), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("searchcache: set: %w", err)
	}
	return nil
}

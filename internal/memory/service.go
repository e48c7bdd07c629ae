package memory

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/recall-dev/recall/internal/api"
	"github.com/recall-dev/recall/internal/embedding"
	"github.com/recall-dev/recall/internal/metrics"
	"github.com/recall-dev/recall/internal/ratelimit"
	"github.com/recall-dev/recall/internal/searchcache"
	"github.com/recall-dev/recall/internal/storage"
)

// WriteConfig holds the validation thresholds §4.6 preconditions check.
type WriteConfig struct {
	MinContentLength int
	MinTags          int
	MaxTags          int
}

// Service orchestrates the write and search pipelines (C6, C7). It owns no
// state of its own: every dependency is process-wide and injected once at
// startup.
type Service struct {
	store    *storage.Store
	embedder embedding.Provider
	limiter  *ratelimit.Limiter
	cache    *searchcache.Cache
	cfg      WriteConfig
}

func NewService(store *storage.Store, embedder embedding.Provider, limiter *ratelimit.Limiter, cache *searchcache.Cache, cfg WriteConfig) *Service {
	return &Service{store: store, embedder: embedder, limiter: limiter, cache: cache, cfg: cfg}
}

// Write runs the full write pipeline of §4.6: preconditions, embed, insert
// and probe atomically, project the result.
func (s *Service) Write(ctx context.Context, ag *storage.Agent, req WriteRequest) (*WriteResponse, error) {
	writeEnabled, err := s.store.IsWriteEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: checking write-enabled flag: %w", err)
	}
	if !writeEnabled {
		return nil, api.ErrWritesDisabled
	}

	if err := s.checkRateLimit(ctx, ag, "memory:write"); err != nil {
		return nil, err
	}

	if utf8.RuneCountInString(req.Content) < s.cfg.MinContentLength {
		return nil, api.NewValidationErrorWithFields(fmt.Sprintf("content must be at least %d characters", s.cfg.MinContentLength), []string{"content"})
	}
	if len(req.Tags) < s.cfg.MinTags || len(req.Tags) > s.cfg.MaxTags {
		return nil, api.NewValidationErrorWithFields(fmt.Sprintf("tags must have between %d and %d entries", s.cfg.MinTags, s.cfg.MaxTags), []string{"tags"})
	}

	vector, err := s.embedder.Embed(ctx, req.Content)
	if err != nil {
		slog.Error("embedding write content", "error", err)
		return nil, api.ErrUpstreamEmbedding
	}

	quality := 0
	if ag.TrustLevel == 0 {
		quality = -1
	}

	mem, hits, err := s.store.InsertMemoryAndProbe(ctx, ag.ID, req.Content, req.Tags, req.SourceURL, vector, "openai/"+s.embedder.Model(), quality)
	if err != nil {
		return nil, fmt.Errorf("memory: write: %w", err)
	}

	metrics.MemoriesWrittenTotal.Inc()

	similar := make([]SimilarEntry, 0, len(hits))
	for _, h := range hits {
		metrics.DuplicatesDetectedTotal.WithLabelValues(h.Relation).Inc()
		similar = append(similar, SimilarEntry{
			ID:         h.ID.String(),
			ShortID:    h.ShortID,
			Similarity: h.Similarity,
			Relation:   h.Relation,
		})
	}

	return &WriteResponse{
		Success: true,
		ID:      mem.ID.String(),
		ShortID: mem.ShortID,
		Status:  "saved",
		Similar: similar,
	}, nil
}

// Search runs the cache → embed → vector-search → log → project pipeline
// of §4.7. A retrieval event is appended for every returned row regardless
// of cache hit or miss.
func (s *Service) Search(ctx context.Context, ag *storage.Agent, q string, limit int) (*SearchResponse, error) {
	if err := s.checkRateLimit(ctx, ag, "memory:search"); err != nil {
		return nil, err
	}

	rows, hit, err := s.cache.Get(ctx, q, limit)
	if err != nil {
		slog.Warn("search cache get failed, treating as miss", "error", err)
		hit = false
	}

	if hit {
		metrics.SearchCacheHitsTotal.Inc()
	} else {
		metrics.SearchCacheMissesTotal.Inc()

		vector, err := s.embedder.Embed(ctx, q)
		if err != nil {
			slog.Error("embedding search query", "error", err)
			return nil, api.ErrUpstreamEmbedding
		}

		storageRows, err := s.store.VectorSearch(ctx, vector, limit)
		if err != nil {
			return nil, fmt.Errorf("memory: search: %w", err)
		}

		rows = make([]searchcache.Row, 0, len(storageRows))
		for _, r := range storageRows {
			rows = append(rows, searchcache.Row{
				MemoryID:       r.MemoryID.String(),
				ShortID:        r.ShortID,
				AgentID:        r.AgentID.String(),
				AuthorName:     r.AuthorName,
				Content:        r.Content,
				Tags:           r.Tags,
				SourceURL:      r.SourceURL,
				Similarity:     r.Similarity,
				RetrievalCount: r.RetrievalCount,
				CreatedAt:      r.CreatedAt,
			})
		}

		if err := s.cache.Put(ctx, q, limit, rows); err != nil {
			slog.Warn("search cache put failed", "error", err)
		}
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		memoryID, err := uuid.Parse(row.MemoryID)
		if err != nil {
			slog.Error("invalid memory id in search row, skipping retrieval log", "memory_id", row.MemoryID, "error", err)
		} else if err := s.store.LogRetrieval(ctx, ag.ID, memoryID, q, row.Similarity); err != nil {
			// Best-effort per §7: a logging failure must not poison a
			// successful read.
			slog.Warn("logging retrieval event failed", "error", err)
		}

		results = append(results, SearchResult{
			ID:             row.MemoryID,
			ShortID:        row.ShortID,
			Content:        row.Content,
			Tags:           row.Tags,
			SourceURL:      row.SourceURL,
			Author:         SearchResultAuthor{Name: row.AuthorName},
			CreatedAt:      row.CreatedAt,
			Similarity:     row.Similarity,
			RetrievalCount: row.RetrievalCount,
		})
	}

	return &SearchResponse{Success: true, Query: q, Results: results}, nil
}

// Get resolves a memory by its 128-bit id or RCL- short id (§4.3).
func (s *Service) Get(ctx context.Context, ag *storage.Agent, handle string) (*MemoryDetail, error) {
	if err := s.checkRateLimit(ctx, ag, "memory:get"); err != nil {
		return nil, err
	}

	d, err := s.store.GetMemoryByIDOrShort(ctx, handle)
	if err != nil {
		return nil, err
	}

	related := make([]RelatedMemory, 0, len(d.Related))
	for _, r := range d.Related {
		related = append(related, RelatedMemory{
			ID:         r.ID.String(),
			ShortID:    r.ShortID,
			Relation:   r.Relation,
			Similarity: r.Similarity,
		})
	}

	return &MemoryDetail{
		ID:        d.ID.String(),
		ShortID:   d.ShortID,
		Content:   d.Content,
		Tags:      d.Tags,
		SourceURL: d.SourceURL,
		Author:    SearchResultAuthor{Name: d.AuthorName},
		CreatedAt: d.CreatedAt,
		Related:   related,
	}, nil
}

func (s *Service) checkRateLimit(ctx context.Context, ag *storage.Agent, endpoint string) error {
	windows := ratelimit.Limits(endpoint, ag.TrustLevel)
	allowed, retryAfter, err := s.limiter.Allow(ctx, ag.ID.String(), endpoint, windows)
	if err != nil {
		slog.Warn("rate limiter error, failing open", "error", err, "endpoint", endpoint)
		return nil
	}
	if !allowed {
		metrics.RateLimitRejectionsTotal.WithLabelValues(endpoint).Inc()
		return &api.RateLimitedError{RetryAfter: retryAfter}
	}
	return nil
}

// Package storage is the persistent store (C3): the five entity tables of
// §3, and the one transaction that matters most — write, probe, link,
// maybe-duplicate, commit (§4.6).
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/recall-dev/recall/internal/shortid"
)

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("storage: not found")

const uniqueViolationCode = "23505"

const maxShortIDRetries = 5

// Thresholds holds the dedup/search similarity cutoffs from §4.6/§4.3.
// Values are the deployment-wide defaults; callers never override them
// per request.
type Thresholds struct {
	MinSimilarity          float64
	DuplicateThreshold     float64
	AutoDuplicateThreshold float64
}

// Store is the single entry point to persistence. One *pgxpool.Pool backs
// every method; the write-and-probe and quarantine transactions are the
// multi-statement sequences that must be atomic (§5).
type Store struct {
	pool       *pgxpool.Pool
	thresholds Thresholds
}

func New(pool *pgxpool.Pool, thresholds Thresholds) *Store {
	return &Store{pool: pool, thresholds: thresholds}
}

// CreateAgent inserts a new agent row. api_key_hash must already be unique
// (enforced by a database constraint); callers see a storage error on
// collision, which practically never happens for high-entropy keys.
func (s *Store) CreateAgent(ctx context.Context, name, apiKeyHash string) (*Agent, error) {
	a := &Agent{ID: uuid.New(), Name: name, APIKeyHash: apiKeyHash, TrustLevel: 0}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO agents (id, name, api_key_hash, trust_level)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		a.ID, a.Name, a.APIKeyHash, a.TrustLevel,
	).Scan(&a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("storage: create agent: %w", err)
	}
	return a, nil
}

// FindAgentByKeyHash looks up the agent authenticating with the given
// api_key_hash (C9). Returns ErrNotFound if no agent matches.
func (s *Store) FindAgentByKeyHash(ctx context.Context, hash string) (*Agent, error) {
	var a Agent
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, api_key_hash, created_at, disabled_at, trust_level
		 FROM agents WHERE api_key_hash = $1`,
		hash,
	).Scan(&a.ID, &a.Name, &a.APIKeyHash, &a.CreatedAt, &a.DisabledAt, &a.TrustLevel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: find agent by key hash: %w", err)
	}
	return &a, nil
}

// InsertMemoryAndProbe is the heart of the system (§4.6): insert the memory
// row, flush to learn its id, run the top-10 similarity probe against the
// existing corpus, classify and link every qualifying hit, and possibly set
// duplicate_of — all within one transaction.
func (s *Store) InsertMemoryAndProbe(
	ctx context.Context,
	agentID uuid.UUID,
	content string,
	tags []string,
	sourceURL *string,
	embedding []float32,
	embeddingModel string,
	quality int,
) (*Memory, []SimilarHit, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: begin write transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	mem, err := s.insertMemoryRow(ctx, tx, agentID, content, tags, sourceURL, embedding, embeddingModel, quality)
	if err != nil {
		return nil, nil, err
	}

	vec := pgvector.NewVector(embedding)
	rows, err := tx.Query(ctx,
		`SELECT id, short_id, 1 - (embedding <=> $1) AS similarity
		 FROM memories
		 WHERE id != $2 AND quality > -2
		 ORDER BY embedding <=> $1, id
		 LIMIT 10`,
		vec, mem.ID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: similarity probe: %w", err)
	}

	type probeHit struct {
		id         uuid.UUID
		shortID    string
		similarity float64
	}
	var hits []probeHit
	for rows.Next() {
		var h probeHit
		if err := rows.Scan(&h.id, &h.shortID, &h.similarity); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("storage: scan probe hit: %w", err)
		}
		hits = append(hits, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("storage: probe iteration: %w", err)
	}

	var similar []SimilarHit
	for _, h := range hits {
		if h.similarity < s.thresholds.MinSimilarity {
			continue
		}

		relation := RelationSimilar
		if h.similarity >= s.thresholds.DuplicateThreshold {
			relation = RelationDuplicateCandidate
		}

		if h.similarity >= s.thresholds.AutoDuplicateThreshold && mem.DuplicateOf == nil {
			dup := h.id
			mem.DuplicateOf = &dup
		}

		linkID := uuid.New()
		if _, err := tx.Exec(ctx,
			`INSERT INTO memory_links (id, memory_id, related_id, relation, similarity)
			 VALUES ($1, $2, $3, $4, $5)`,
			linkID, mem.ID, h.id, relation, h.similarity,
		); err != nil {
			return nil, nil, fmt.Errorf("storage: insert memory link: %w", err)
		}

		similar = append(similar, SimilarHit{
			ID:         h.id,
			ShortID:    h.shortID,
			Similarity: round4(h.similarity),
			Relation:   relation,
		})
	}

	if mem.DuplicateOf != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE memories SET duplicate_of = $1 WHERE id = $2`,
			mem.DuplicateOf, mem.ID,
		); err != nil {
			return nil, nil, fmt.Errorf("storage: set duplicate_of: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("storage: commit write transaction: %w", err)
	}

	return mem, similar, nil
}

// insertMemoryRow generates a short id and inserts the memory row, retrying
// with a fresh id a bounded number of times on a unique-constraint collision
// (§4.2).
func (s *Store) insertMemoryRow(
	ctx context.Context,
	tx pgx.Tx,
	agentID uuid.UUID,
	content string,
	tags []string,
	sourceURL *string,
	embedding []float32,
	embeddingModel string,
	quality int,
) (*Memory, error) {
	vec := pgvector.NewVector(embedding)

	var lastErr error
	for attempt := 0; attempt < maxShortIDRetries; attempt++ {
		id, err := shortid.Generate()
		if err != nil {
			return nil, fmt.Errorf("storage: generate short id: %w", err)
		}

		mem := &Memory{
			ID:             uuid.New(),
			ShortID:        id,
			AgentID:        agentID,
			Content:        content,
			Tags:           tags,
			SourceURL:      sourceURL,
			EmbeddingModel: embeddingModel,
			Quality:        quality,
		}

		// A savepoint keeps a failed insert from aborting the enclosing
		// transaction, so the next attempt can run in it.
		sp, err := tx.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: begin insert savepoint: %w", err)
		}
		err = sp.QueryRow(ctx,
			`INSERT INTO memories (id, short_id, agent_id, content, tags, source_url, embedding, embedding_model, quality)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING created_at`,
			mem.ID, mem.ShortID, mem.AgentID, mem.Content, mem.Tags, mem.SourceURL, vec, mem.EmbeddingModel, mem.Quality,
		).Scan(&mem.CreatedAt)
		if err == nil {
			if err := sp.Commit(ctx); err != nil {
				return nil, fmt.Errorf("storage: release insert savepoint: %w", err)
			}
			return mem, nil
		}
		_ = sp.Rollback(ctx)

		lastErr = err
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("storage: insert memory: %w", err)
		}
		// short_id collision: loop and try again with a fresh id.
	}
	return nil, fmt.Errorf("storage: insert memory: exhausted short id retries: %w", lastErr)
}

// VectorSearch runs the semantic retrieval query (§4.3, §4.7): candidates
// joined with author name and retrieval count, filtered to quality > -2 and
// similarity >= min_similarity, ordered ascending by cosine distance.
func (s *Store) VectorSearch(ctx context.Context, embedding []float32, limit int) ([]SearchRow, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.short_id, m.agent_id, a.name, m.content, m.tags, m.source_url, m.created_at,
		        1 - (m.embedding <=> $1) AS similarity,
		        (SELECT count(*) FROM retrieval_events re WHERE re.memory_id = m.id) AS retrieval_count
		 FROM memories m
		 JOIN agents a ON a.id = m.agent_id
		 WHERE m.quality > -2
		   AND 1 - (m.embedding <=> $1) >= $2
		 ORDER BY m.embedding <=> $1, m.id
		 LIMIT $3`,
		vec, s.thresholds.MinSimilarity, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: vector search: %w", err)
	}
	defer rows.Close()

	var out []SearchRow
	for rows.Next() {
		var r SearchRow
		var retrievalCount int64
		if err := rows.Scan(&r.MemoryID, &r.ShortID, &r.AgentID, &r.AuthorName, &r.Content, &r.Tags, &r.SourceURL,
			&r.CreatedAt, &r.Similarity, &retrievalCount); err != nil {
			return nil, fmt.Errorf("storage: scan search row: %w", err)
		}
		r.Similarity = round4(r.Similarity)
		r.RetrievalCount = int(retrievalCount)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetMemoryByIDOrShort accepts either the 128-bit id or the RCL- short id
// and returns the full detail projection including outgoing links (§4.3).
func (s *Store) GetMemoryByIDOrShort(ctx context.Context, handle string) (*MemoryDetail, error) {
	var row pgx.Row
	if id, err := uuid.Parse(handle); err == nil {
		row = s.pool.QueryRow(ctx,
			`SELECT m.id, m.short_id, m.agent_id, a.name, m.content, m.tags, m.source_url, m.created_at
			 FROM memories m JOIN agents a ON a.id = m.agent_id
			 WHERE m.id = $1`,
			id,
		)
	} else {
		row = s.pool.QueryRow(ctx,
			`SELECT m.id, m.short_id, m.agent_id, a.name, m.content, m.tags, m.source_url, m.created_at
			 FROM memories m JOIN agents a ON a.id = m.agent_id
			 WHERE m.short_id = $1`,
			handle,
		)
	}

	var d MemoryDetail
	if err := row.Scan(&d.ID, &d.ShortID, &d.AgentID, &d.AuthorName, &d.Content, &d.Tags, &d.SourceURL, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get memory: %w", err)
	}

	linkRows, err := s.pool.Query(ctx,
		`SELECT ml.related_id, m2.short_id, ml.relation, ml.similarity
		 FROM memory_links ml
		 JOIN memories m2 ON m2.id = ml.related_id
		 WHERE ml.memory_id = $1
		 ORDER BY ml.created_at`,
		d.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get memory links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var rel RelatedMemory
		if err := linkRows.Scan(&rel.ID, &rel.ShortID, &rel.Relation, &rel.Similarity); err != nil {
			return nil, fmt.Errorf("storage: scan memory link: %w", err)
		}
		rel.Similarity = round4(rel.Similarity)
		d.Related = append(d.Related, rel)
	}
	return &d, linkRows.Err()
}

// LogRetrieval appends a retrieval event. Best-effort: callers in the search
// pipeline swallow its error rather than fail an otherwise successful read
// (§7).
func (s *Store) LogRetrieval(ctx context.Context, agentID, memoryID uuid.UUID, query string, similarity float64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO retrieval_events (id, agent_id, memory_id, query, similarity)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), agentID, memoryID, query, similarity,
	)
	if err != nil {
		return fmt.Errorf("storage: log retrieval: %w", err)
	}
	return nil
}

// IsWriteEnabled treats absence of the global_write_enabled key as true.
func (s *Store) IsWriteEnabled(ctx context.Context) (bool, error) {
	value, err := s.GetConfig(ctx, "global_write_enabled")
	if err != nil {
		return false, err
	}
	if value == nil {
		return true, nil
	}
	return *value == "true", nil
}

// GetConfig returns the value for key, or nil if unset.
func (s *Store) GetConfig(ctx context.Context, key string) (*string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM system_config WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: get config %q: %w", key, err)
	}
	return &value, nil
}

// SetConfig upserts key=value with updated_at = now.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO system_config (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storage: set config %q: %w", key, err)
	}
	return nil
}

// QuarantineAgent disables the agent and quality=-2's every memory it
// authored, in one transaction (§4.8). Returns ErrNotFound if the agent
// does not exist.
func (s *Store) QuarantineAgent(ctx context.Context, agentID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin quarantine transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE agents SET disabled_at = now() WHERE id = $1 AND disabled_at IS NULL`,
		agentID,
	)
	if err != nil {
		return fmt.Errorf("storage: disable agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := s.agentExists(ctx, tx, agentID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		// Already disabled: idempotent, fall through to re-assert quarantine on memories.
	}

	if _, err := tx.Exec(ctx,
		`UPDATE memories SET quality = -2 WHERE agent_id = $1`,
		agentID,
	); err != nil {
		return fmt.Errorf("storage: quarantine memories: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit quarantine transaction: %w", err)
	}
	return nil
}

func (s *Store) agentExists(ctx context.Context, tx pgx.Tx, agentID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM agents WHERE id = $1)`, agentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("storage: check agent exists: %w", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}

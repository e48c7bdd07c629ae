package storage

import (
	"time"

	"github.com/google/uuid"
)

// Agent is the identity and trust principal of §3.
type Agent struct {
	ID         uuid.UUID
	Name       string
	APIKeyHash string
	CreatedAt  time.Time
	DisabledAt *time.Time
	TrustLevel int
}

// Memory is a single shareable note, including its embedding provenance.
type Memory struct {
	ID             uuid.UUID
	ShortID        string
	AgentID        uuid.UUID
	Content        string
	Tags           []string
	SourceURL      *string
	CreatedAt      time.Time
	EmbeddingModel string
	Quality        int
	DuplicateOf    *uuid.UUID
}

// MemoryLink is a directed similarity edge created during a write (§3).
type MemoryLink struct {
	ID         uuid.UUID
	MemoryID   uuid.UUID
	RelatedID  uuid.UUID
	Relation   string
	Similarity float64
	CreatedAt  time.Time
}

const (
	RelationSimilar            = "similar"
	RelationDuplicateCandidate = "duplicate_candidate"
)

// SimilarHit is one entry of the list returned alongside a freshly written
// memory: the links created during its write, in probe order (§4.6).
type SimilarHit struct {
	ID         uuid.UUID
	ShortID    string
	Similarity float64
	Relation   string
}

// SearchRow is one candidate returned by VectorSearch: the memory joined
// with its author's name, similarity, and accumulated retrieval count (§4.3).
type SearchRow struct {
	MemoryID       uuid.UUID
	ShortID        string
	AgentID        uuid.UUID
	AuthorName     string
	Content        string
	Tags           []string
	SourceURL      *string
	CreatedAt      time.Time
	Similarity     float64
	RetrievalCount int
}

// RelatedMemory is one outgoing link surfaced in a memory detail response.
type RelatedMemory struct {
	ID         uuid.UUID
	ShortID    string
	Relation   string
	Similarity float64
}

// MemoryDetail is the full projection returned by GetMemoryByIDOrShort.
type MemoryDetail struct {
	ID         uuid.UUID
	ShortID    string
	AgentID    uuid.UUID
	AuthorName string
	Content    string
	Tags       []string
	SourceURL  *string
	CreatedAt  time.Time
	Related    []RelatedMemory
}

// Package memory implements the write pipeline with dedup (C6) and the
// search pipeline (C7): the two request flows that exercise embedding,
// storage, rate limiting, and the search cache together.
package memory

import "time"

// WriteRequest is the POST /memory body (§6).
type WriteRequest struct {
	Content   string   `json:"content" validate:"required"`
	Tags      []string `json:"tags" validate:"required,min=2,max=6,dive,required"`
	SourceURL *string  `json:"source_url,omitempty" validate:"omitempty,url"`
}

// SimilarEntry is one item of WriteResponse.Similar (§4.6).
type SimilarEntry struct {
	ID         string  `json:"id"`
	ShortID    string  `json:"short_id"`
	Similarity float64 `json:"similarity"`
	Relation   string  `json:"relation"`
}

// WriteResponse is the POST /memory success body (§6).
type WriteResponse struct {
	Success bool           `json:"success"`
	ID      string         `json:"id"`
	ShortID string         `json:"short_id"`
	Status  string         `json:"status"`
	Similar []SimilarEntry `json:"similar"`
}

// SearchResultAuthor is the author attached to each search result.
type SearchResultAuthor struct {
	Name string `json:"name"`
}

// SearchResult is one row of GET /memory/search's results (§4.7, §6).
type SearchResult struct {
	ID             string             `json:"id"`
	ShortID        string             `json:"short_id"`
	Content        string             `json:"content"`
	Tags           []string           `json:"tags"`
	SourceURL      *string            `json:"source_url,omitempty"`
	Author         SearchResultAuthor `json:"author"`
	CreatedAt      time.Time          `json:"created_at"`
	Similarity     float64            `json:"similarity"`
	RetrievalCount int                `json:"retrieval_count"`
}

// SearchResponse is the GET /memory/search success body (§6).
type SearchResponse struct {
	Success bool           `json:"success"`
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// RelatedMemory is one outgoing link in a GetResponse (§4.3).
type RelatedMemory struct {
	ID         string  `json:"id"`
	ShortID    string  `json:"short_id"`
	Relation   string  `json:"relation"`
	Similarity float64 `json:"similarity"`
}

// MemoryDetail is the full projection returned by GET /memory/{id-or-short}.
type MemoryDetail struct {
	ID        string             `json:"id"`
	ShortID   string             `json:"short_id"`
	Content   string             `json:"content"`
	Tags      []string           `json:"tags"`
	SourceURL *string            `json:"source_url,omitempty"`
	Author    SearchResultAuthor `json:"author"`
	CreatedAt time.Time          `json:"created_at"`
	Related   []RelatedMemory    `json:"related"`
}

// GetResponse is the GET /memory/{id-or-short} success body (§6).
type GetResponse struct {
	Success bool         `json:"success"`
	Memory  MemoryDetail `json:"memory"`
}

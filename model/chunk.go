package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk represents a bounded span of document text, the retrieval granularity.
// Chunks are immutable once created and owned by the ingestion pipeline.
type Chunk struct {
	ID              uuid.UUID `json:"id"`
	DocumentID      uuid.UUID `json:"document_id"`
	BlockID         uuid.UUID `json:"block_id,omitempty"`
	PageNumber      int       `json:"page_number"`
	Text            string    `json:"text"`
	TokenCount      int       `json:"token_count"`
	ConfidenceScore int       `json:"confidence_score"` // 0-100
	CreationMethod  string    `json:"creation_method"`
	Embedding       []float32 `json:"embedding,omitempty"`
	Metadata        Metadata  `json:"metadata,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ChunkResult is one ranked chunk in a retrieval response
type ChunkResult struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	Text    string    `json:"text"`
	Score   float64   `json:"score"`
	Source  string    `json:"source"` // vector_search or keyword_fallback
}

const (
	// ChunkSourceVector marks a chunk resolved from a vector index hit
	ChunkSourceVector = "vector_search"
	// ChunkSourceKeywordFallback marks a chunk found by the ILIKE fallback
	ChunkSourceKeywordFallback = "keyword_fallback"
)

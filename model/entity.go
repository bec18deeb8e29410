package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity represents a typed named concept instance extracted from a chunk.
// Multiple rows may denote the same real-world concept (same normalized text
// and type); the store keeps every raw row and canonicalization resolves
// duplicates at query time.
type Entity struct {
	ID               uuid.UUID `json:"id"`
	DocumentID       uuid.UUID `json:"document_id"`
	ChunkID          uuid.UUID `json:"chunk_id"`
	PageNumber       int       `json:"page_number"`
	Text             string    `json:"entity_text"`
	Type             string    `json:"entity_type"`
	ConfidenceScore  int       `json:"confidence_score"` // 0-100
	ExtractionMethod string    `json:"extraction_method"`
	Metadata         Metadata  `json:"metadata,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// GraphEntity is one canonical node in a retrieval response
type GraphEntity struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Type string    `json:"type"`
}

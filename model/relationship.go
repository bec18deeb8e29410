package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationTypeRelated is the generic fallback relation type. Expansion
// pruning drops it first because it carries the least signal.
const RelationTypeRelated = "RELATED_TO"

// Relationship represents a typed, directed edge between two entities.
// Self-loops (source == target after canonicalization) are invalid.
type Relationship struct {
	ID               uuid.UUID `json:"id"`
	DocumentID       uuid.UUID `json:"document_id"`
	ChunkID          uuid.UUID `json:"chunk_id"`
	PageNumber       int       `json:"page_number"`
	SourceEntityID   uuid.UUID `json:"source_entity_id"`
	TargetEntityID   uuid.UUID `json:"target_entity_id"`
	Type             string    `json:"relationship_type"`
	ConfidenceScore  int       `json:"confidence_score"` // 0-100
	ExtractionMethod string    `json:"extraction_method"`
	Metadata         Metadata  `json:"metadata,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// GraphEdge is one canonicalized edge in a retrieval response
type GraphEdge struct {
	SourceID uuid.UUID `json:"source_id"`
	TargetID uuid.UUID `json:"target_id"`
	Type     string    `json:"type"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// VectorIndexEntry maps a (document id, position) pair in a per-document
// vector index back to the chunk the vector was computed from. Entries are
// written at ingestion time and read to resolve federated search hits.
type VectorIndexEntry struct {
	ID          uuid.UUID `json:"id"`
	DocumentID  uuid.UUID `json:"document_id"`
	VectorIndex int       `json:"vector_index"`
	ChunkID     uuid.UUID `json:"chunk_id"`
	CreatedAt   time.Time `json:"created_at"`
}

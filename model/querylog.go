package model

import (
	"time"

	"github.com/google/uuid"
)

// QueryType classifies a retrieval query. The label is advisory metadata;
// both the vector and the graph branch always run.
type QueryType string

const (
	QueryTypeRelational QueryType = "relational"
	QueryTypeSemantic   QueryType = "semantic"
)

// QueryLog is an append-only audit record of one retrieval call.
// Write failures never abort the retrieval response.
type QueryLog struct {
	ID                uuid.UUID   `json:"id"`
	QueryText         string      `json:"query_text"`
	QueryType         QueryType   `json:"query_type"`
	RetrievedChunkIDs []uuid.UUID `json:"retrieved_chunk_ids"`
	RetrievedGraph    Metadata    `json:"retrieved_graph"`
	ExecutionTimeMs   int         `json:"execution_time_ms"`
	CreatedAt         time.Time   `json:"created_at"`
}

package model

// GraphResult is the graph payload of a retrieval response: the canonical
// entities touched by a surviving edge plus the deduplicated edge list.
type GraphResult struct {
	Entities      []GraphEntity `json:"entities"`
	Relationships []GraphEdge   `json:"relationships"`
}

// ExecutionStats carries per-request execution metrics
type ExecutionStats struct {
	DurationMs    int `json:"duration_ms"`
	Chunks        int `json:"chunks"`
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
}

// RetrievalResult is the consolidated response of one hybrid retrieval call
type RetrievalResult struct {
	Query  string         `json:"query"`
	Type   QueryType      `json:"type"`
	Chunks []ChunkResult  `json:"chunks"`
	Graph  GraphResult    `json:"graph"`
	Stats  ExecutionStats `json:"execution_stats"`
}

// Answer is the generated answer together with the retrieval it was built from
type Answer struct {
	Query       string           `json:"query"`
	Text        string           `json:"answer"`
	ContextUsed string           `json:"context_used"`
	Retrieval   *RetrievalResult `json:"raw_retrieval,omitempty"`
}

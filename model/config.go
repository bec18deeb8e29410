package model

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	// Vector search parameters
	TopK int `json:"top_k"`

	// Graph traversal parameters. MaxExpansionStrong applies when the
	// traversal has a strong signal (direct edges, bridge nodes or targeted
	// edges), MaxExpansionWeak otherwise.
	MaxExpansionStrong int `json:"max_expansion_strong"`
	MaxExpansionWeak   int `json:"max_expansion_weak"`

	// PartialMatchLimit caps fuzzy entity matches kept per query term when
	// no exact match exists (shortest texts win).
	PartialMatchLimit int `json:"partial_match_limit"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() *QueryConfig {
	return &QueryConfig{
		TopK:               5,
		MaxExpansionStrong: 2,
		MaxExpansionWeak:   5,
		PartialMatchLimit:  3,
	}
}

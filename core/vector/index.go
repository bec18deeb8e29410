package vector

import (
	"context"

	"github.com/google/uuid"
)

// Hit is a single similarity match inside one document's index. Position is
// the vector index position used to resolve the chunk through the embeddings
// mapping table.
type Hit struct {
	DocumentID uuid.UUID
	Position   int
	Score      float32
}

// DocumentIndex is the per-document vector index. Each document owns its own
// index; positions are dense and start at zero.
type DocumentIndex interface {
	Add(ctx context.Context, position int, text string, embedding []float32) error
	Search(ctx context.Context, embedding []float32, topK int) ([]Hit, error)
	Size() int
}

// IndexProvider hands out the index of a document, creating it on first use.
type IndexProvider interface {
	IndexFor(ctx context.Context, documentID uuid.UUID) (DocumentIndex, error)
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

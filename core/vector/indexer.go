package vector

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// Indexer builds per-document vector indexes and maintains the position to
// chunk mapping used to resolve search hits back to chunks.
type Indexer struct {
	provider   IndexProvider
	embedder   Embedder
	embeddings database.EmbeddingsDBHandlerFunctions
	chunks     database.ChunksDBHandlerFunctions
	logger     *slog.Logger
}

// NewIndexer creates an indexer writing through the given handlers.
func NewIndexer(provider IndexProvider, embedder Embedder, embeddings database.EmbeddingsDBHandlerFunctions, chunks database.ChunksDBHandlerFunctions, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Indexer{
		provider:   provider,
		embedder:   embedder,
		embeddings: embeddings,
		chunks:     chunks,
		logger:     logger,
	}
}

// IndexDocument embeds every chunk of the document into the document's own
// index. Positions are assigned in chunk order starting at zero and the
// position to chunk mapping is upserted, so re-indexing a document
// overwrites its previous mapping.
func (x *Indexer) IndexDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	chunks, err := x.chunks.SelectChunksByDocument(documentID, 0)
	if err != nil {
		return 0, helper.NewError("select chunks", err)
	}

	index, err := x.provider.IndexFor(ctx, documentID)
	if err != nil {
		return 0, helper.NewError("open document index", err)
	}

	indexed := 0
	for position, chunk := range chunks {
		embedding := chunk.Embedding
		if len(embedding) == 0 {
			embedding, err = x.embedder.Embed(chunk.Text)
			if err != nil {
				return indexed, helper.NewError("embed chunk", err)
			}
		}

		err = index.Add(ctx, position, chunk.Text, embedding)
		if err != nil {
			return indexed, helper.NewError("add chunk to index", err)
		}

		entry := &model.VectorIndexEntry{
			DocumentID:  documentID,
			VectorIndex: position,
			ChunkID:     chunk.ID,
		}
		err = x.embeddings.InsertVectorIndexEntry(entry)
		if err != nil {
			return indexed, helper.NewError("store vector index mapping", err)
		}

		indexed++
	}

	x.logger.Info("Indexed document",
		slog.String("documentId", documentID.String()),
		slog.Int("chunks", indexed),
	)

	return indexed, nil
}

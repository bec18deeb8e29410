package vector

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"golang.org/x/sync/errgroup"
)

const previewRunes = 200

// Federator searches every document's vector index in parallel and merges
// the results into one globally ranked list.
type Federator struct {
	provider   IndexProvider
	embedder   Embedder
	embeddings database.EmbeddingsDBHandlerFunctions
	chunks     database.ChunksDBHandlerFunctions
	logger     *slog.Logger
}

// NewFederator creates a federated vector searcher.
func NewFederator(provider IndexProvider, embedder Embedder, embeddings database.EmbeddingsDBHandlerFunctions, chunks database.ChunksDBHandlerFunctions, logger *slog.Logger) *Federator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Federator{
		provider:   provider,
		embedder:   embedder,
		embeddings: embeddings,
		chunks:     chunks,
		logger:     logger,
	}
}

// Search embeds the query, fans out over all indexed documents, pools the
// per-document hits into one ranking and resolves the global top-k to chunk
// results. A failing document index is logged and skipped, it never fails
// the whole search. If vector search yields nothing, a keyword fallback over
// the chunk texts is used.
func (f *Federator) Search(ctx context.Context, query string, topK int) ([]model.ChunkResult, error) {
	if topK < 1 {
		topK = model.DefaultQueryConfig().TopK
	}

	queryEmbedding, err := f.embedder.Embed(query)
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	documentIDs, err := f.embeddings.SelectDocumentsWithEmbeddings()
	if err != nil {
		return nil, helper.NewError("select indexed documents", err)
	}

	var mu sync.Mutex
	var pooled []Hit

	group, groupCtx := errgroup.WithContext(ctx)
	for _, documentID := range documentIDs {
		documentID := documentID
		group.Go(func() error {
			index, err := f.provider.IndexFor(groupCtx, documentID)
			if err != nil {
				f.logger.Warn("skipping document index",
					slog.String("documentId", documentID.String()),
					slog.Any("error", err),
				)
				return nil
			}

			hits, err := index.Search(groupCtx, queryEmbedding, topK)
			if err != nil {
				f.logger.Warn("skipping failed document search",
					slog.String("documentId", documentID.String()),
					slog.Any("error", err),
				)
				return nil
			}

			mu.Lock()
			pooled = append(pooled, hits...)
			mu.Unlock()
			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return nil, helper.NewError("federated search", err)
	}

	sort.SliceStable(pooled, func(i, j int) bool {
		return pooled[i].Score > pooled[j].Score
	})
	if len(pooled) > topK {
		pooled = pooled[:topK]
	}

	results := make([]model.ChunkResult, 0, len(pooled))
	for _, hit := range pooled {
		entry, err := f.embeddings.SelectEntryByPosition(hit.DocumentID, hit.Position)
		if err != nil {
			f.logger.Warn("skipping unresolvable vector hit",
				slog.String("documentId", hit.DocumentID.String()),
				slog.Int("position", hit.Position),
				slog.Any("error", err),
			)
			continue
		}

		chunk, err := f.chunks.SelectChunk(entry.ChunkID)
		if err != nil {
			f.logger.Warn("skipping hit with missing chunk",
				slog.String("chunkId", entry.ChunkID.String()),
				slog.Any("error", err),
			)
			continue
		}

		results = append(results, model.ChunkResult{
			ChunkID: chunk.ID,
			Text:    chunk.Text,
			Score:   float64(hit.Score),
			Source:  model.ChunkSourceVector,
		})
	}

	if len(results) == 0 {
		return f.keywordFallback(query, topK)
	}

	return results, nil
}

// keywordFallback matches the query against the chunk texts directly and
// returns zero-scored previews.
func (f *Federator) keywordFallback(query string, topK int) ([]model.ChunkResult, error) {
	chunks, err := f.chunks.SelectChunksByText(query, topK)
	if err != nil {
		return nil, helper.NewError("keyword fallback", err)
	}

	results := make([]model.ChunkResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, model.ChunkResult{
			ChunkID: chunk.ID,
			Text:    preview(chunk.Text),
			Score:   0,
			Source:  model.ChunkSourceKeywordFallback,
		})
	}

	return results, nil
}

// preview truncates a text to the first 200 runes.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes])
}

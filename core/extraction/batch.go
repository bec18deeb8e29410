package extraction

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// BatchExtractor runs graph extraction over all chunks of a document using a
// worker pool. Chunk failures are isolated: one failing chunk is logged and
// counted without aborting the rest of the document.
type BatchExtractor struct {
	engine    *Engine
	persister *Persister
	chunks    database.ChunksDBHandlerFunctions
	pool      *ants.Pool
	logger    *slog.Logger
}

// NewBatchExtractor creates a batch extractor. poolSize values below 1 fall
// back to half the CPU count.
func NewBatchExtractor(engine *Engine, persister *Persister, chunks database.ChunksDBHandlerFunctions, poolSize int, logger *slog.Logger) (*BatchExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if poolSize < 1 {
		poolSize = runtime.NumCPU() / 2
		if poolSize < 1 {
			poolSize = 1
		}
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, helper.NewError("create worker pool", err)
	}

	return &BatchExtractor{
		engine:    engine,
		persister: persister,
		chunks:    chunks,
		pool:      pool,
		logger:    logger,
	}, nil
}

// ExtractDocument extracts and stores the graph for every chunk of the
// document and returns aggregate stats. Failed chunks are logged and left
// out of the counts.
func (b *BatchExtractor) ExtractDocument(ctx context.Context, documentID uuid.UUID) (*model.ExecutionStats, error) {
	start := time.Now()

	chunks, err := b.chunks.SelectChunksByDocument(documentID, 0)
	if err != nil {
		return nil, helper.NewError("select chunks", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	stats := &model.ExecutionStats{}
	var failed []uuid.UUID

	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()

			result, err := b.engine.Extract(ctx, chunk.Text)
			if err != nil {
				b.logger.Error("chunk extraction failed",
					slog.String("chunkId", chunk.ID.String()),
					slog.Any("error", err),
				)
				mu.Lock()
				failed = append(failed, chunk.ID)
				mu.Unlock()
				return
			}

			entities, relationships, err := b.persister.StoreChunkGraph(ctx, chunk, result)
			if err != nil {
				b.logger.Error("chunk graph storage failed",
					slog.String("chunkId", chunk.ID.String()),
					slog.Any("error", err),
				)
				mu.Lock()
				failed = append(failed, chunk.ID)
				mu.Unlock()
				return
			}

			mu.Lock()
			stats.Chunks++
			stats.Entities += entities
			stats.Relationships += relationships
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			failed = append(failed, chunk.ID)
			mu.Unlock()
			b.logger.Error("submitting chunk to worker pool failed",
				slog.String("chunkId", chunk.ID.String()),
				slog.Any("error", err),
			)
		}
	}

	wg.Wait()

	stats.DurationMs = int(time.Since(start).Milliseconds())

	b.logger.Info("Document graph extraction complete",
		slog.String("documentId", documentID.String()),
		slog.Int("chunks", stats.Chunks),
		slog.Int("failedChunks", len(failed)),
		slog.Int("entities", stats.Entities),
		slog.Int("relationships", stats.Relationships),
	)

	return stats, nil
}

// Release releases the worker pool. The extractor must not be used after.
func (b *BatchExtractor) Release() {
	b.pool.Release()
}

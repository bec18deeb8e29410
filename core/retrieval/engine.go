package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/model"
)

// ChunkSearcher provides the semantic half of hybrid retrieval.
type ChunkSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]model.ChunkResult, error)
}

// GraphSearcherFunctions provides the relational half of hybrid retrieval.
type GraphSearcherFunctions interface {
	Search(ctx context.Context, query string) (*model.GraphResult, error)
}

// Engine runs both retrieval paths for every query and consolidates the
// results with execution stats.
type Engine struct {
	chunks    ChunkSearcher
	graph     GraphSearcherFunctions
	queryLogs database.QueryLogsDBHandlerFunctions
	logger    *slog.Logger
}

// NewEngine creates a hybrid retrieval engine. queryLogs may be nil to
// disable provenance logging.
func NewEngine(chunks ChunkSearcher, graph GraphSearcherFunctions, queryLogs database.QueryLogsDBHandlerFunctions, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		chunks:    chunks,
		graph:     graph,
		queryLogs: queryLogs,
		logger:    logger,
	}
}

// Retrieve classifies the query, runs vector and graph search and returns
// the consolidated result. A graph search failure degrades to an empty graph
// instead of failing the retrieval; the provenance log write is best effort.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) (*model.RetrievalResult, error) {
	start := time.Now()

	queryType := ClassifyQuery(query)

	chunkResults, err := e.chunks.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	graphResult, err := e.graph.Search(ctx, query)
	if err != nil {
		e.logger.Error("graph search failed, returning empty graph", slog.Any("error", err))
		graphResult = &model.GraphResult{Entities: []model.GraphEntity{}, Relationships: []model.GraphEdge{}}
	}

	duration := int(time.Since(start).Milliseconds())

	result := &model.RetrievalResult{
		Query:  query,
		Type:   queryType,
		Chunks: chunkResults,
		Graph:  *graphResult,
		Stats: model.ExecutionStats{
			DurationMs:    duration,
			Chunks:        len(chunkResults),
			Entities:      len(graphResult.Entities),
			Relationships: len(graphResult.Relationships),
		},
	}

	e.logQuery(result)

	return result, nil
}

// logQuery stores provenance for the retrieval. Failures are logged and
// swallowed so a broken log table never breaks retrieval.
func (e *Engine) logQuery(result *model.RetrievalResult) {
	if e.queryLogs == nil {
		return
	}

	chunkIDs := make([]uuid.UUID, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		chunkIDs = append(chunkIDs, chunk.ChunkID)
	}

	queryLog := &model.QueryLog{
		QueryText:         result.Query,
		QueryType:         result.Type,
		RetrievedChunkIDs: chunkIDs,
		RetrievedGraph: model.Metadata{
			"entities":      result.Graph.Entities,
			"relationships": result.Graph.Relationships,
		},
		ExecutionTimeMs: result.Stats.DurationMs,
	}

	err := e.queryLogs.InsertQueryLog(queryLog)
	if err != nil {
		e.logger.Error("failed to log query", slog.Any("error", err))
	}
}

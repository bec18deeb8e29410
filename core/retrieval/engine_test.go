package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
)

type fakeChunkSearcher struct {
	chunks []model.ChunkResult
	err    error
}

func (s *fakeChunkSearcher) Search(ctx context.Context, query string, topK int) ([]model.ChunkResult, error) {
	return s.chunks, s.err
}

type fakeGraphSearcher struct {
	result *model.GraphResult
	err    error
}

func (s *fakeGraphSearcher) Search(ctx context.Context, query string) (*model.GraphResult, error) {
	return s.result, s.err
}

type fakeQueryLogs struct {
	logs []*model.QueryLog
	err  error
}

func (l *fakeQueryLogs) InsertQueryLog(queryLog *model.QueryLog) error {
	if l.err != nil {
		return l.err
	}
	l.logs = append(l.logs, queryLog)
	return nil
}

func (l *fakeQueryLogs) SelectRecentQueryLogs(limit int) ([]*model.QueryLog, error) {
	return l.logs, nil
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	chunkID := uuid.New()
	chunks := []model.ChunkResult{{ChunkID: chunkID, Text: "Alice owns Acme Corp", Score: 0.9, Source: model.ChunkSourceVector}}
	entityID := uuid.New()
	otherID := uuid.New()
	graph := &model.GraphResult{
		Entities: []model.GraphEntity{
			{ID: entityID, Name: "Alice", Type: "PERSON"},
			{ID: otherID, Name: "Acme Corp", Type: "ORG"},
		},
		Relationships: []model.GraphEdge{{SourceID: entityID, TargetID: otherID, Type: "OWNS"}},
	}

	t.Run("Valid call Retrieve", func(t *testing.T) {
		queryLogs := &fakeQueryLogs{}
		engine := NewEngine(&fakeChunkSearcher{chunks: chunks}, &fakeGraphSearcher{result: graph}, queryLogs, nil)

		result, err := engine.Retrieve(ctx, "Who owns Acme Corp?", 5)

		assert.NoError(t, err, "Expected Retrieve to not return an error")
		assert.Equal(t, model.QueryTypeRelational, result.Type, "Expected the query to be classified as relational")
		assert.Equal(t, chunks, result.Chunks, "Expected the chunk results to be passed through")
		assert.Equal(t, *graph, result.Graph, "Expected the graph result to be passed through")
		assert.Equal(t, 1, result.Stats.Chunks, "Expected stats to count the chunks")
		assert.Equal(t, 2, result.Stats.Entities, "Expected stats to count the graph entities")
		assert.Equal(t, 1, result.Stats.Relationships, "Expected stats to count the graph relationships")

		assert.Len(t, queryLogs.logs, 1, "Expected the retrieval to be logged")
		assert.Equal(t, "Who owns Acme Corp?", queryLogs.logs[0].QueryText, "Expected the query text to be logged")
		assert.Equal(t, []uuid.UUID{chunkID}, queryLogs.logs[0].RetrievedChunkIDs, "Expected the chunk ids to be logged")
	})

	t.Run("Valid call Retrieve with failing graph search", func(t *testing.T) {
		engine := NewEngine(&fakeChunkSearcher{chunks: chunks}, &fakeGraphSearcher{err: errors.New("graph down")}, nil, nil)

		result, err := engine.Retrieve(ctx, "income tax rules", 5)

		assert.NoError(t, err, "Expected a graph failure to not fail the retrieval")
		assert.Equal(t, model.QueryTypeSemantic, result.Type, "Expected the query to be classified as semantic")
		assert.Equal(t, chunks, result.Chunks, "Expected the chunk results to survive")
		assert.Empty(t, result.Graph.Entities, "Expected an empty graph on graph failure")
		assert.Empty(t, result.Graph.Relationships, "Expected an empty graph on graph failure")
	})

	t.Run("Valid call Retrieve with failing query log", func(t *testing.T) {
		queryLogs := &fakeQueryLogs{err: errors.New("table missing")}
		engine := NewEngine(&fakeChunkSearcher{chunks: chunks}, &fakeGraphSearcher{result: graph}, queryLogs, nil)

		result, err := engine.Retrieve(ctx, "Who owns Acme Corp?", 5)

		assert.NoError(t, err, "Expected a log failure to not fail the retrieval")
		assert.NotNil(t, result, "Expected the retrieval result to be returned")
	})

	t.Run("Invalid call Retrieve with failing chunk search", func(t *testing.T) {
		engine := NewEngine(&fakeChunkSearcher{err: errors.New("index gone")}, &fakeGraphSearcher{result: graph}, nil, nil)

		result, err := engine.Retrieve(ctx, "anything", 5)

		assert.Error(t, err, "Expected Retrieve to return the chunk search error")
		assert.Nil(t, result, "Expected Retrieve to return a nil result")
	})
}

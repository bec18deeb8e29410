package vector

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/siherrmann/graphrag/helper"
)

// ChromemProvider keeps one chromem collection per document. Collections are
// created lazily and named after the document id.
type ChromemProvider struct {
	db *chromem.DB

	mu      sync.Mutex
	indexes map[uuid.UUID]*chromemIndex
}

// NewChromemProvider creates an in-memory provider. If dbPath is non-empty
// the collections are persisted there instead.
func NewChromemProvider(dbPath string) (*ChromemProvider, error) {
	var db *chromem.DB
	var err error
	if dbPath == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, false)
		if err != nil {
			return nil, helper.NewError("create persistent vector store", err)
		}
	}

	return &ChromemProvider{
		db:      db,
		indexes: map[uuid.UUID]*chromemIndex{},
	}, nil
}

// IndexFor returns the index of the document, creating its collection on
// first use.
func (p *ChromemProvider) IndexFor(ctx context.Context, documentID uuid.UUID) (DocumentIndex, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index, ok := p.indexes[documentID]; ok {
		return index, nil
	}

	collection, err := p.db.GetOrCreateCollection("doc_"+documentID.String(), nil, nil)
	if err != nil {
		return nil, helper.NewError("create document collection", err)
	}

	index := &chromemIndex{
		documentID: documentID,
		collection: collection,
	}
	p.indexes[documentID] = index

	return index, nil
}

// chromemIndex wraps one document's collection. Vector index positions are
// stored as the chromem document ids.
type chromemIndex struct {
	documentID uuid.UUID
	collection *chromem.Collection
}

func (i *chromemIndex) Add(ctx context.Context, position int, text string, embedding []float32) error {
	doc := chromem.Document{
		ID:        strconv.Itoa(position),
		Content:   text,
		Embedding: embedding,
	}

	err := i.collection.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU())
	if err != nil {
		return helper.NewError("add document to collection", err)
	}
	return nil
}

func (i *chromemIndex) Search(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := i.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       topK,
	})
	if err != nil {
		return nil, helper.NewError("query collection", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		position, err := strconv.Atoi(result.ID)
		if err != nil {
			return nil, helper.NewError("parse vector index position", fmt.Errorf("unexpected id %v: %w", result.ID, err))
		}
		hits = append(hits, Hit{
			DocumentID: i.documentID,
			Position:   position,
			Score:      result.Similarity,
		})
	}

	return hits, nil
}

func (i *chromemIndex) Size() int {
	return i.collection.Count()
}

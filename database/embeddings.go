package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// EmbeddingsDBHandlerFunctions defines the interface for the mapping between
// per-document vector index positions and chunk rows.
type EmbeddingsDBHandlerFunctions interface {
	InsertVectorIndexEntry(entry *model.VectorIndexEntry) error
	SelectEntryByPosition(documentID uuid.UUID, vectorIndex int) (*model.VectorIndexEntry, error)
	SelectDocumentsWithEmbeddings() ([]uuid.UUID, error)
	SelectEntriesByDocument(documentID uuid.UUID) ([]*model.VectorIndexEntry, error)
}

// EmbeddingsDBHandler handles embedding-mapping-related database operations
type EmbeddingsDBHandler struct {
	db *helper.Database
}

// NewEmbeddingsDBHandler creates a new embeddings database handler.
// It initializes the database connection and loads embedding-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEmbeddingsDBHandler(db *helper.Database, force bool) (*EmbeddingsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	embeddingsDbHandler := &EmbeddingsDBHandler{
		db: db,
	}

	err := loadSql.LoadEmbeddingsSql(embeddingsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load embeddings sql", err)
	}

	err = embeddingsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EmbeddingsDBHandler")

	return embeddingsDbHandler, nil
}

// CreateTable creates the 'embeddings' table in the database.
// If the table already exists, it does not create it again.
func (h *EmbeddingsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_embeddings();`)
	if err != nil {
		log.Panicf("error initializing embeddings table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table embeddings")

	return nil
}

// InsertVectorIndexEntry upserts the mapping for a (document, position) pair.
// Re-indexing a document overwrites previous positions instead of duplicating them.
func (h *EmbeddingsDBHandler) InsertVectorIndexEntry(entry *model.VectorIndexEntry) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_embedding($1, $2, $3)`,
		entry.DocumentID,
		entry.VectorIndex,
		entry.ChunkID,
	)

	err := row.Scan(
		&entry.ID,
		&entry.DocumentID,
		&entry.VectorIndex,
		&entry.ChunkID,
		&entry.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntryByPosition selects the mapping entry for a vector index position
// inside a document's vector store.
func (h *EmbeddingsDBHandler) SelectEntryByPosition(documentID uuid.UUID, vectorIndex int) (*model.VectorIndexEntry, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_embedding_by_position($1, $2)`,
		documentID,
		vectorIndex,
	)

	entry := &model.VectorIndexEntry{}
	err := row.Scan(
		&entry.ID,
		&entry.DocumentID,
		&entry.VectorIndex,
		&entry.ChunkID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entry, nil
}

// SelectDocumentsWithEmbeddings selects the ids of all documents that have at
// least one vector index entry.
func (h *EmbeddingsDBHandler) SelectDocumentsWithEmbeddings() ([]uuid.UUID, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_documents_with_embeddings()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var documentIDs []uuid.UUID
	for rows.Next() {
		var documentID uuid.UUID
		err := rows.Scan(&documentID)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		documentIDs = append(documentIDs, documentID)
	}

	return documentIDs, rows.Err()
}

// SelectEntriesByDocument selects all mapping entries of a document ordered by position.
func (h *EmbeddingsDBHandler) SelectEntriesByDocument(documentID uuid.UUID) ([]*model.VectorIndexEntry, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_embeddings_by_document($1)`,
		documentID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entries []*model.VectorIndexEntry
	for rows.Next() {
		entry := &model.VectorIndexEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.DocumentID,
			&entry.VectorIndex,
			&entry.ChunkID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

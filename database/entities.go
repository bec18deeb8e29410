package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) error
	InsertEntityTx(tx *sql.Tx, entity *model.Entity) error
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntitiesBySearch(search string) ([]*model.Entity, error)
	SelectEntitiesByIDs(ids []uuid.UUID) ([]*model.Entity, error)
	SelectEntitiesByDocument(documentID uuid.UUID) ([]*model.Entity, error)
	DeleteEntity(id uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts a new entity
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5, $6, $7, $8)`,
		entity.DocumentID,
		entity.ChunkID,
		entity.PageNumber,
		entity.Text,
		entity.Type,
		entity.ConfidenceScore,
		entity.ExtractionMethod,
		entity.Metadata,
	)

	return scanEntity(row, entity)
}

// InsertEntityTx inserts a new entity inside an open transaction.
// Extraction uses this so one chunk's graph commits or rolls back as a unit.
func (h *EntitiesDBHandler) InsertEntityTx(tx *sql.Tx, entity *model.Entity) error {
	row := tx.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5, $6, $7, $8)`,
		entity.DocumentID,
		entity.ChunkID,
		entity.PageNumber,
		entity.Text,
		entity.Type,
		entity.ConfidenceScore,
		entity.ExtractionMethod,
		entity.Metadata,
	)

	return scanEntity(row, entity)
}

// SelectEntity selects an entity by ID
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	entity := &model.Entity{}
	if err := scanEntity(row, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// SelectEntitiesBySearch selects entities whose text contains the search term
// (case-insensitive), ordered by text length ascending so the shortest, most
// precise matches come first
func (h *EntitiesDBHandler) SelectEntitiesBySearch(search string) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_search($1)`,
		search,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectEntitiesByIDs selects all entities whose id is in the given set
func (h *EntitiesDBHandler) SelectEntitiesByIDs(ids []uuid.UUID) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_ids($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectEntitiesByDocument selects all entities extracted from a document
func (h *EntitiesDBHandler) SelectEntitiesByDocument(documentID uuid.UUID) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_document($1)`,
		documentID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// DeleteEntity deletes an entity by ID
func (h *EntitiesDBHandler) DeleteEntity(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanEntity(row scanner, entity *model.Entity) error {
	err := row.Scan(
		&entity.ID,
		&entity.DocumentID,
		&entity.ChunkID,
		&entity.PageNumber,
		&entity.Text,
		&entity.Type,
		&entity.ConfidenceScore,
		&entity.ExtractionMethod,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}
	return nil
}

func scanEntities(rows *sql.Rows) ([]*model.Entity, error) {
	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		if err := scanEntity(rows, entity); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

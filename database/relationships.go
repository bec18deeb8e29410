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

// RelationshipsDBHandlerFunctions defines the interface for Relationships database operations.
type RelationshipsDBHandlerFunctions interface {
	InsertRelationship(relationship *model.Relationship) error
	InsertRelationshipTx(tx *sql.Tx, relationship *model.Relationship) error
	SelectRelationship(id uuid.UUID) (*model.Relationship, error)
	SelectRelationshipsTouching(entityIDs []uuid.UUID) ([]*model.Relationship, error)
	SelectRelationshipsByDocument(documentID uuid.UUID) ([]*model.Relationship, error)
	DeleteRelationship(id uuid.UUID) error
}

// RelationshipsDBHandler handles relationship-related database operations
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new relationships database handler.
// It initializes the database connection and loads relationship-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
	}

	err := loadSql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'relationships' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		log.Panicf("error initializing relationships table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relationships")

	return nil
}

// InsertRelationship inserts a new relationship
func (h *RelationshipsDBHandler) InsertRelationship(relationship *model.Relationship) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_relationship($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		relationship.DocumentID,
		relationship.ChunkID,
		relationship.PageNumber,
		relationship.SourceEntityID,
		relationship.TargetEntityID,
		relationship.Type,
		relationship.ConfidenceScore,
		relationship.ExtractionMethod,
		relationship.Metadata,
	)

	return scanRelationship(row, relationship)
}

// InsertRelationshipTx inserts a new relationship inside an open transaction
func (h *RelationshipsDBHandler) InsertRelationshipTx(tx *sql.Tx, relationship *model.Relationship) error {
	row := tx.QueryRow(
		`SELECT * FROM insert_relationship($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		relationship.DocumentID,
		relationship.ChunkID,
		relationship.PageNumber,
		relationship.SourceEntityID,
		relationship.TargetEntityID,
		relationship.Type,
		relationship.ConfidenceScore,
		relationship.ExtractionMethod,
		relationship.Metadata,
	)

	return scanRelationship(row, relationship)
}

// SelectRelationship selects a relationship by ID
func (h *RelationshipsDBHandler) SelectRelationship(id uuid.UUID) (*model.Relationship, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_relationship($1)`,
		id,
	)

	relationship := &model.Relationship{}
	if err := scanRelationship(row, relationship); err != nil {
		return nil, err
	}
	return relationship, nil
}

// SelectRelationshipsTouching selects all relationships where either endpoint
// is among the given entity ids (the 1-hop neighborhood)
func (h *RelationshipsDBHandler) SelectRelationshipsTouching(entityIDs []uuid.UUID) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_touching($1)`,
		pq.Array(entityIDs),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// SelectRelationshipsByDocument selects all relationships extracted from a document
func (h *RelationshipsDBHandler) SelectRelationshipsByDocument(documentID uuid.UUID) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_by_document($1)`,
		documentID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// DeleteRelationship deletes a relationship by ID
func (h *RelationshipsDBHandler) DeleteRelationship(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_relationship($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanRelationship(row scanner, relationship *model.Relationship) error {
	err := row.Scan(
		&relationship.ID,
		&relationship.DocumentID,
		&relationship.ChunkID,
		&relationship.PageNumber,
		&relationship.SourceEntityID,
		&relationship.TargetEntityID,
		&relationship.Type,
		&relationship.ConfidenceScore,
		&relationship.ExtractionMethod,
		&relationship.Metadata,
		&relationship.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}
	return nil
}

func scanRelationships(rows *sql.Rows) ([]*model.Relationship, error) {
	var relationships []*model.Relationship
	for rows.Next() {
		relationship := &model.Relationship{}
		if err := scanRelationship(rows, relationship); err != nil {
			return nil, err
		}
		relationships = append(relationships, relationship)
	}
	return relationships, rows.Err()
}

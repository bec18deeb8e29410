package extraction

import (
	"context"
	"log/slog"

	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

const (
	entityConfidence       = 90
	relationshipConfidence = 80
)

// Persister writes extraction results to the graph store, one transaction
// per chunk.
type Persister struct {
	db            *helper.Database
	entities      database.EntitiesDBHandlerFunctions
	relationships database.RelationshipsDBHandlerFunctions
	logger        *slog.Logger
}

// NewPersister creates a persister writing through the given handlers.
func NewPersister(db *helper.Database, entities database.EntitiesDBHandlerFunctions, relationships database.RelationshipsDBHandlerFunctions, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}

	return &Persister{
		db:            db,
		entities:      entities,
		relationships: relationships,
		logger:        logger,
	}
}

// StoreChunkGraph persists the extraction result of a single chunk inside one
// transaction. Entity names resolve first-wins to an id; relationships whose
// endpoints did not both resolve are skipped and counted, not failed. Any
// database error rolls the whole chunk back.
func (p *Persister) StoreChunkGraph(ctx context.Context, chunk *model.Chunk, result *Result) (int, int, error) {
	tx, err := p.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, helper.NewError("begin transaction", err)
	}

	extractionMethod := "dep_parse"
	if hasNERMention(result) {
		extractionMethod = "dep_parse_ner"
	}

	nameToID := map[string]*model.Entity{}
	entitiesStored := 0

	for _, candidate := range result.Entities {
		if candidate.Name == "" {
			continue
		}
		if _, ok := nameToID[candidate.Name]; ok {
			continue
		}

		entity := &model.Entity{
			DocumentID:       chunk.DocumentID,
			ChunkID:          chunk.ID,
			PageNumber:       chunk.PageNumber,
			Text:             candidate.Name,
			Type:             candidate.Type,
			ConfidenceScore:  entityConfidence,
			ExtractionMethod: extractionMethod,
			Metadata:         model.Metadata{"source": "dep_parse_pipeline"},
		}

		err := p.entities.InsertEntityTx(tx, entity)
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				p.logger.Error("rollback failed", slog.Any("error", rollbackErr))
			}
			return 0, 0, helper.NewError("insert entity", err)
		}

		nameToID[candidate.Name] = entity
		entitiesStored++
	}

	relationshipsStored := 0
	skipped := 0

	for _, candidate := range result.Relationships {
		source, sourceOk := nameToID[candidate.Source]
		target, targetOk := nameToID[candidate.Target]
		if !sourceOk || !targetOk {
			skipped++
			continue
		}

		relationship := &model.Relationship{
			DocumentID:       chunk.DocumentID,
			ChunkID:          chunk.ID,
			PageNumber:       chunk.PageNumber,
			SourceEntityID:   source.ID,
			TargetEntityID:   target.ID,
			Type:             candidate.Type,
			ConfidenceScore:  relationshipConfidence,
			ExtractionMethod: extractionMethod,
		}

		err := p.relationships.InsertRelationshipTx(tx, relationship)
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				p.logger.Error("rollback failed", slog.Any("error", rollbackErr))
			}
			return 0, 0, helper.NewError("insert relationship", err)
		}

		relationshipsStored++
	}

	err = tx.Commit()
	if err != nil {
		return 0, 0, helper.NewError("commit transaction", err)
	}

	if skipped > 0 {
		p.logger.Debug("skipped relationships with unresolved endpoints",
			slog.String("chunkId", chunk.ID.String()),
			slog.Int("skipped", skipped),
		)
	}

	p.logger.Info("Stored chunk graph",
		slog.String("chunkId", chunk.ID.String()),
		slog.Int("entities", entitiesStored),
		slog.Int("relationships", relationshipsStored),
	)

	return entitiesStored, relationshipsStored, nil
}

// hasNERMention reports whether any mention carries a model-produced label
// instead of a dictionary one.
func hasNERMention(result *Result) bool {
	for _, m := range result.Entities {
		if nerLabels[m.Type] {
			return true
		}
	}
	return false
}

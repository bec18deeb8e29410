package mirror

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
)

// Syncer mirrors the extracted graph of a document into Neo4j for
// visualization. Nodes merge on (name, type) so duplicate entity rows
// collapse into one node; each sync tags everything it touched with a run id
// and prunes what the previous run left behind.
type Syncer struct {
	driver        neo4j.DriverWithContext
	entities      database.EntitiesDBHandlerFunctions
	relationships database.RelationshipsDBHandlerFunctions
	logger        *slog.Logger
}

// NewSyncer connects to Neo4j with the given credentials.
func NewSyncer(uri string, username string, password string, entities database.EntitiesDBHandlerFunctions, relationships database.RelationshipsDBHandlerFunctions, logger *slog.Logger) (*Syncer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, helper.NewError("create neo4j driver", err)
	}

	return &Syncer{
		driver:        driver,
		entities:      entities,
		relationships: relationships,
		logger:        logger,
	}, nil
}

// SyncDocument mirrors all entities and relationships of the document.
func (s *Syncer) SyncDocument(ctx context.Context, documentID uuid.UUID) error {
	entities, err := s.entities.SelectEntitiesByDocument(documentID)
	if err != nil {
		return helper.NewError("select entities", err)
	}

	relationships, err := s.relationships.SelectRelationshipsByDocument(documentID)
	if err != nil {
		return helper.NewError("select relationships", err)
	}

	entityNames := make(map[uuid.UUID]struct {
		name string
		typ  string
	}, len(entities))
	for _, entity := range entities {
		entityNames[entity.ID] = struct {
			name string
			typ  string
		}{name: entity.Text, typ: entity.Type}
	}

	runID := uuid.New().String()
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, entity := range entities {
			_, err := tx.Run(ctx,
				`MERGE (e:Entity {name: $name, type: $type, document_id: $documentId})
				 SET e.run_id = $runId`,
				map[string]any{
					"name":       entity.Text,
					"type":       entity.Type,
					"documentId": documentID.String(),
					"runId":      runID,
				},
			)
			if err != nil {
				return nil, err
			}
		}

		for _, relationship := range relationships {
			source, sourceOk := entityNames[relationship.SourceEntityID]
			target, targetOk := entityNames[relationship.TargetEntityID]
			if !sourceOk || !targetOk {
				continue
			}

			_, err := tx.Run(ctx,
				`MATCH (a:Entity {name: $sourceName, type: $sourceType, document_id: $documentId})
				 MATCH (b:Entity {name: $targetName, type: $targetType, document_id: $documentId})
				 MERGE (a)-[r:`+sanitizeRelType(relationship.Type)+`]->(b)
				 SET r.run_id = $runId, r.confidence = $confidence`,
				map[string]any{
					"sourceName": source.name,
					"sourceType": source.typ,
					"targetName": target.name,
					"targetType": target.typ,
					"documentId": documentID.String(),
					"runId":      runID,
					"confidence": relationship.ConfidenceScore,
				},
			)
			if err != nil {
				return nil, err
			}
		}

		// Prune what previous runs wrote for this document but this run
		// did not touch.
		_, err := tx.Run(ctx,
			`MATCH (e:Entity {document_id: $documentId}) WHERE e.run_id <> $runId DETACH DELETE e`,
			map[string]any{"documentId": documentID.String(), "runId": runID},
		)
		if err != nil {
			return nil, err
		}
		_, err = tx.Run(ctx,
			`MATCH (:Entity {document_id: $documentId})-[r]->() WHERE r.run_id <> $runId DELETE r`,
			map[string]any{"documentId": documentID.String(), "runId": runID},
		)
		return nil, err
	})
	if err != nil {
		return helper.NewError("sync document graph", err)
	}

	s.logger.Info("Mirrored document graph",
		slog.String("documentId", documentID.String()),
		slog.Int("entities", len(entities)),
		slog.Int("relationships", len(relationships)),
	)

	return nil
}

// Close releases the driver.
func (s *Syncer) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// sanitizeRelType makes a relationship type safe to appear in a Cypher
// pattern. Cypher relationship types cannot be parameterized.
func sanitizeRelType(relType string) string {
	var builder strings.Builder
	for _, r := range strings.ToUpper(relType) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			builder.WriteRune(r)
		} else {
			builder.WriteRune('_')
		}
	}

	sanitized := builder.String()
	if sanitized == "" {
		return "RELATED_TO"
	}
	if unicode.IsDigit(rune(sanitized[0])) {
		sanitized = "_" + sanitized
	}
	return sanitized
}

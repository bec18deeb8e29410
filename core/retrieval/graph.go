package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/analyzer"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// ignoredQueryTerms are filler nouns dropped from the noun fallback when the
// query itself contains no named entities.
var ignoredQueryTerms = map[string]bool{
	"relationship": true,
	"link":         true,
	"connection":   true,
	"between":      true,
	"what":         true,
	"how":          true,
}

// GraphSearcher resolves query terms to stored entities and assembles their
// 1-hop neighborhood, keeping bridge and targeted edges over generic
// expansion.
type GraphSearcher struct {
	analyzer      analyzer.Analyzer
	entities      database.EntitiesDBHandlerFunctions
	relationships database.RelationshipsDBHandlerFunctions
	config        *model.QueryConfig
	logger        *slog.Logger
}

// NewGraphSearcher creates a graph searcher. A nil config falls back to the
// defaults.
func NewGraphSearcher(parseAnalyzer analyzer.Analyzer, entities database.EntitiesDBHandlerFunctions, relationships database.RelationshipsDBHandlerFunctions, config *model.QueryConfig, logger *slog.Logger) *GraphSearcher {
	if config == nil {
		config = model.DefaultQueryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GraphSearcher{
		analyzer:      parseAnalyzer,
		entities:      entities,
		relationships: relationships,
		config:        config,
		logger:        logger,
	}
}

// matchedEntities keeps the resolved entities in insertion order so
// canonicalization is deterministic.
type matchedEntities struct {
	byID  map[uuid.UUID]*model.Entity
	order []uuid.UUID
}

func newMatchedEntities() *matchedEntities {
	return &matchedEntities{byID: map[uuid.UUID]*model.Entity{}}
}

func (m *matchedEntities) add(entity *model.Entity) {
	if _, ok := m.byID[entity.ID]; ok {
		return
	}
	m.byID[entity.ID] = entity
	m.order = append(m.order, entity.ID)
}

func (m *matchedEntities) has(id uuid.UUID) bool {
	_, ok := m.byID[id]
	return ok
}

// Search extracts entity terms from the query and returns their canonical
// 1-hop graph neighborhood.
func (s *GraphSearcher) Search(ctx context.Context, query string) (*model.GraphResult, error) {
	empty := &model.GraphResult{Entities: []model.GraphEntity{}, Relationships: []model.GraphEdge{}}

	queryTerms, err := s.extractQueryTerms(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(queryTerms) == 0 {
		return empty, nil
	}

	matched := newMatchedEntities()
	for _, term := range queryTerms {
		candidates, err := s.entities.SelectEntitiesBySearch(term)
		if err != nil {
			return nil, helper.NewError("search entities", err)
		}

		var exact []*model.Entity
		for _, candidate := range candidates {
			if strings.EqualFold(candidate.Text, term) {
				exact = append(exact, candidate)
			}
		}

		if len(exact) > 0 {
			for _, entity := range exact {
				matched.add(entity)
			}
			continue
		}

		// Candidates arrive ordered by text length, so the head of the
		// slice holds the tightest partial matches.
		limit := s.config.PartialMatchLimit
		if limit > len(candidates) {
			limit = len(candidates)
		}
		for _, entity := range candidates[:limit] {
			matched.add(entity)
		}
	}

	if len(matched.order) == 0 {
		return empty, nil
	}

	allRelations, err := s.relationships.SelectRelationshipsTouching(matched.order)
	if err != nil {
		return nil, helper.NewError("select touching relationships", err)
	}

	var direct []*model.Relationship
	var expansion []*model.Relationship
	neighborConnectivity := map[uuid.UUID]map[uuid.UUID]bool{}

	for _, relation := range allRelations {
		sourceIn := matched.has(relation.SourceEntityID)
		targetIn := matched.has(relation.TargetEntityID)

		if sourceIn && targetIn {
			direct = append(direct, relation)
			continue
		}

		expansion = append(expansion, relation)
		neighborID := relation.SourceEntityID
		connectedID := relation.TargetEntityID
		if sourceIn {
			neighborID = relation.TargetEntityID
			connectedID = relation.SourceEntityID
		}
		if neighborConnectivity[neighborID] == nil {
			neighborConnectivity[neighborID] = map[uuid.UUID]bool{}
		}
		neighborConnectivity[neighborID][connectedID] = true
	}

	// A neighbor touching more than one distinct matched entity bridges
	// them through a 2-hop path.
	bridgeNeighbors := map[uuid.UUID]bool{}
	for neighborID, connected := range neighborConnectivity {
		if len(connected) > 1 {
			bridgeNeighbors[neighborID] = true
		}
	}

	targeted, expansion, err := s.scanForMissingTerms(queryTerms, matched, expansion, bridgeNeighbors)
	if err != nil {
		return nil, err
	}

	finalRelations := make([]*model.Relationship, 0, len(direct)+len(targeted))
	finalRelations = append(finalRelations, direct...)
	finalRelations = append(finalRelations, targeted...)

	hasStrongSignal := len(direct) > 0 || len(bridgeNeighbors) > 0 || len(targeted) > 0
	maxExpansion := s.config.MaxExpansionWeak
	if hasStrongSignal {
		maxExpansion = s.config.MaxExpansionStrong
	}

	expansionByAnchor := map[uuid.UUID][]*model.Relationship{}
	var anchorOrder []uuid.UUID
	for _, relation := range expansion {
		neighborID := relation.TargetEntityID
		anchorID := relation.SourceEntityID
		if !matched.has(relation.SourceEntityID) {
			neighborID = relation.SourceEntityID
			anchorID = relation.TargetEntityID
		}

		// Bridge edges always survive, the expansion cap only applies
		// to single-anchor neighbors.
		if bridgeNeighbors[neighborID] {
			finalRelations = append(finalRelations, relation)
			continue
		}

		if _, ok := expansionByAnchor[anchorID]; !ok {
			anchorOrder = append(anchorOrder, anchorID)
		}
		expansionByAnchor[anchorID] = append(expansionByAnchor[anchorID], relation)
	}

	for _, anchorID := range anchorOrder {
		relations := expansionByAnchor[anchorID]
		filtered := make([]*model.Relationship, 0, len(relations))
		for _, relation := range relations {
			if relation.Type != model.RelationTypeRelated {
				filtered = append(filtered, relation)
			}
		}
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].ConfidenceScore > filtered[j].ConfidenceScore
		})
		if len(filtered) > maxExpansion {
			filtered = filtered[:maxExpansion]
		}
		finalRelations = append(finalRelations, filtered...)
	}

	return s.formatGraph(matched, finalRelations)
}

// extractQueryTerms takes the query's entity spans, falling back to nouns and
// proper nouns minus filler terms when the query has no named entities.
func (s *GraphSearcher) extractQueryTerms(ctx context.Context, query string) ([]string, error) {
	doc, err := s.analyzer.Analyze(ctx, query)
	if err != nil {
		return nil, helper.NewError("analyze query", err)
	}

	var terms []string
	for _, span := range doc.Entities {
		terms = append(terms, span.Text)
	}
	if len(terms) > 0 {
		return terms, nil
	}

	for _, token := range doc.Tokens {
		if (token.POS == "NOUN" || token.POS == "PROPN") && !ignoredQueryTerms[strings.ToLower(token.Text)] {
			terms = append(terms, token.Text)
		}
	}
	if len(terms) > 0 {
		s.logger.Debug("no named entities in query, using noun fallback", slog.Any("terms", terms))
	}

	return terms, nil
}

// scanForMissingTerms looks for query terms that matched no stored entity
// among the 1-hop neighbors. Edges reaching such a neighbor replace the
// generic expansion entirely; if nothing is found and only one entity
// matched without bridges, the expansion is pruned to avoid noise.
func (s *GraphSearcher) scanForMissingTerms(queryTerms []string, matched *matchedEntities, expansion []*model.Relationship, bridgeNeighbors map[uuid.UUID]bool) ([]*model.Relationship, []*model.Relationship, error) {
	foundTexts := map[string]bool{}
	for _, id := range matched.order {
		foundTexts[strings.ToLower(matched.byID[id].Text)] = true
	}

	var missingTerms []string
	for _, term := range queryTerms {
		if !foundTexts[strings.ToLower(term)] {
			missingTerms = append(missingTerms, strings.ToLower(term))
		}
	}

	if len(missingTerms) == 0 || len(expansion) == 0 {
		return nil, expansion, nil
	}

	neighborIDs := map[uuid.UUID]bool{}
	var neighborOrder []uuid.UUID
	for _, relation := range expansion {
		neighborID := relation.TargetEntityID
		if !matched.has(relation.SourceEntityID) {
			neighborID = relation.SourceEntityID
		}
		if !neighborIDs[neighborID] {
			neighborIDs[neighborID] = true
			neighborOrder = append(neighborOrder, neighborID)
		}
	}

	neighbors, err := s.entities.SelectEntitiesByIDs(neighborOrder)
	if err != nil {
		return nil, nil, helper.NewError("select neighbor entities", err)
	}
	neighborByID := make(map[uuid.UUID]*model.Entity, len(neighbors))
	for _, neighbor := range neighbors {
		neighborByID[neighbor.ID] = neighbor
	}

	var targeted []*model.Relationship
	for _, relation := range expansion {
		neighborID := relation.TargetEntityID
		if !matched.has(relation.SourceEntityID) {
			neighborID = relation.SourceEntityID
		}
		neighbor, ok := neighborByID[neighborID]
		if !ok {
			continue
		}
		neighborText := strings.ToLower(neighbor.Text)
		for _, term := range missingTerms {
			if strings.Contains(neighborText, term) {
				targeted = append(targeted, relation)
				matched.add(neighbor)
				break
			}
		}
	}

	if len(targeted) > 0 {
		s.logger.Debug("missing query terms resolved through neighborhood",
			slog.Any("terms", missingTerms),
			slog.Int("targetedEdges", len(targeted)),
		)
		return targeted, nil, nil
	}
	if len(matched.order) == 1 && len(bridgeNeighbors) == 0 {
		s.logger.Debug("missing terms unresolved, pruning generic expansion", slog.Any("terms", missingTerms))
		return nil, nil, nil
	}

	return nil, expansion, nil
}

// formatGraph canonicalizes the surviving edges and resolves the entities
// they touch. Entities sharing normalized text and type collapse into the
// first seen id; self-loops and duplicate edges are dropped.
func (s *GraphSearcher) formatGraph(matched *matchedEntities, finalRelations []*model.Relationship) (*model.GraphResult, error) {
	type nameType struct {
		name string
		typ  string
	}

	canonicalByKey := map[nameType]uuid.UUID{}
	canonicalByID := map[uuid.UUID]uuid.UUID{}
	for _, id := range matched.order {
		entity := matched.byID[id]
		key := nameType{name: entity.Text, typ: entity.Type}
		if _, ok := canonicalByKey[key]; !ok {
			canonicalByKey[key] = id
		}
		canonicalByID[id] = canonicalByKey[key]
	}

	// Endpoints outside the matched set are 1-hop neighbors kept through
	// bridge or expansion edges; each is its own canonical node.
	canonicalOf := func(id uuid.UUID) uuid.UUID {
		if canonical, ok := canonicalByID[id]; ok {
			return canonical
		}
		return id
	}

	edges := []model.GraphEdge{}
	usedCanonicalIDs := map[uuid.UUID]bool{}
	var usedOrder []uuid.UUID
	seenEdges := map[model.GraphEdge]bool{}

	for _, relation := range finalRelations {
		sourceCanonical := canonicalOf(relation.SourceEntityID)
		targetCanonical := canonicalOf(relation.TargetEntityID)
		if sourceCanonical == targetCanonical {
			continue
		}

		edge := model.GraphEdge{
			SourceID: sourceCanonical,
			TargetID: targetCanonical,
			Type:     relation.Type,
		}
		if seenEdges[edge] {
			continue
		}
		seenEdges[edge] = true
		edges = append(edges, edge)

		for _, id := range []uuid.UUID{sourceCanonical, targetCanonical} {
			if !usedCanonicalIDs[id] {
				usedCanonicalIDs[id] = true
				usedOrder = append(usedOrder, id)
			}
		}
	}

	var unresolved []uuid.UUID
	for _, id := range usedOrder {
		if !matched.has(id) {
			unresolved = append(unresolved, id)
		}
	}
	if len(unresolved) > 0 {
		resolved, err := s.entities.SelectEntitiesByIDs(unresolved)
		if err != nil {
			return nil, helper.NewError("resolve edge entities", err)
		}
		for _, entity := range resolved {
			matched.add(entity)
		}
	}

	nodes := []model.GraphEntity{}
	for _, id := range usedOrder {
		entity, ok := matched.byID[id]
		if !ok {
			continue
		}
		nodes = append(nodes, model.GraphEntity{
			ID:   id,
			Name: entity.Text,
			Type: entity.Type,
		})
	}

	return &model.GraphResult{Entities: nodes, Relationships: edges}, nil
}

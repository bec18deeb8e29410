package extraction

import (
	"context"
	"log/slog"
	"strings"

	"github.com/siherrmann/graphrag/analyzer"
)

// Result holds the entity mentions and relationship candidates extracted from
// a single text.
type Result struct {
	Entities      []Mention
	Relationships []Relation
}

// Engine extracts a knowledge graph from text by combining a dependency
// parse, an optional NER overlay and the domain dictionary.
type Engine struct {
	analyzer analyzer.Analyzer
	ner      analyzer.NERTagger
	taxonomy *Taxonomy
	logger   *slog.Logger
}

// NewEngine creates an extraction engine. The NER tagger may be nil, in which
// case only the analyzer's entity spans and the domain dictionary are used.
func NewEngine(parseAnalyzer analyzer.Analyzer, nerTagger analyzer.NERTagger, taxonomy *Taxonomy, logger *slog.Logger) *Engine {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		analyzer: parseAnalyzer,
		ner:      nerTagger,
		taxonomy: taxonomy,
		logger:   logger,
	}
}

// Extract analyzes the text and returns the extracted entity mentions and
// relationship candidates. Relationship candidates are deduplicated by
// (source, target, type), first occurrence wins.
func (e *Engine) Extract(ctx context.Context, text string) (*Result, error) {
	doc, err := e.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	index, entities := e.buildEntityIndex(doc, text)

	var relations []Relation
	for _, token := range doc.Tokens {
		if token.POS == "VERB" {
			relations = append(relations, extractVerbRelations(doc, index, token, e.taxonomy)...)
		}
		if token.Dep == "poss" {
			relations = append(relations, extractPossessives(doc, index, token)...)
		}
		if token.Dep == "appos" {
			relations = append(relations, extractAppositions(doc, index, token)...)
		}
		if token.Dep == "prep" {
			relations = append(relations, extractPrepositionalLinks(doc, index, token, e.taxonomy)...)
		}
		if token.Dep == "compound" || token.Dep == "amod" || token.Dep == "nmod" {
			relations = append(relations, extractModifiers(doc, index, token)...)
		}
	}

	relations = append(relations, extractCoOccurrences(doc, index, relations)...)

	return &Result{
		Entities:      entities,
		Relationships: dedupeRelations(relations),
	}, nil
}

// buildEntityIndex maps token indices to mentions. The domain dictionary
// claims single tokens first, then the analyzer's entity spans, then the NER
// overlay for tokens still unclaimed.
func (e *Engine) buildEntityIndex(doc *analyzer.Doc, text string) (entityIndex, []Mention) {
	index := make(entityIndex)
	var entities []Mention

	claim := func(m Mention, start int, end int) {
		claimed := false
		for tokenIndex := start; tokenIndex < end && tokenIndex < len(doc.Tokens); tokenIndex++ {
			if _, ok := index[tokenIndex]; ok {
				continue
			}
			index[tokenIndex] = m
			claimed = true
		}
		if claimed {
			entities = append(entities, m)
		}
	}

	for _, token := range doc.Tokens {
		if label, ok := e.taxonomy.TermLabel(token.Text); ok {
			claim(Mention{Name: NormalizeEntityText(token.Text, label), Type: label}, token.Index, token.Index+1)
		}
	}

	for _, span := range doc.Entities {
		if !e.taxonomy.ValidLabel(span.Label) {
			continue
		}
		claim(Mention{Name: NormalizeEntityText(span.Text, span.Label), Type: span.Label}, span.Start, span.End)
	}

	if e.ner != nil {
		named, err := e.ner.Recognize(text)
		if err != nil {
			e.logger.Warn("NER overlay failed, continuing with parse entities only", slog.Any("error", err))
		}
		for _, entity := range named {
			label := normalizeOverlayLabel(entity.Label)
			if !e.taxonomy.ValidLabel(label) {
				continue
			}
			start, end, ok := tokensCovering(doc, entity.Start, entity.End)
			if !ok {
				continue
			}
			claim(Mention{Name: NormalizeEntityText(entity.Text, label), Type: label}, start, end)
		}
	}

	return index, entities
}

// tokensCovering returns the token index range overlapping the byte range.
func tokensCovering(doc *analyzer.Doc, charStart int, charEnd int) (int, int, bool) {
	start, end := -1, -1
	for _, token := range doc.Tokens {
		if token.CharEnd <= charStart || token.CharStart >= charEnd {
			continue
		}
		if start == -1 {
			start = token.Index
		}
		end = token.Index + 1
	}
	if start == -1 {
		return 0, 0, false
	}
	return start, end, true
}

// normalizeOverlayLabel maps NER model labels to the analyzer's label set.
func normalizeOverlayLabel(label string) string {
	switch strings.ToUpper(label) {
	case "PER", "PERSON":
		return "PERSON"
	case "ORG", "ORGANIZATION", "ORGANISATION":
		return "ORG"
	case "LOC", "LOCATION":
		return "LOC"
	case "MISC":
		return "PRODUCT"
	default:
		return strings.ToUpper(label)
	}
}

// dedupeRelations drops repeated (source, target, type) triples, keeping the
// first occurrence.
func dedupeRelations(relations []Relation) []Relation {
	seen := make(map[Relation]bool, len(relations))
	deduped := make([]Relation, 0, len(relations))
	for _, relation := range relations {
		if seen[relation] {
			continue
		}
		seen[relation] = true
		deduped = append(deduped, relation)
	}
	return deduped
}

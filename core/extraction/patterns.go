package extraction

import (
	"strings"

	"github.com/siherrmann/graphrag/analyzer"
	"github.com/siherrmann/graphrag/model"
)

// Mention is a normalized entity occurrence shared by all tokens of its span.
type Mention struct {
	Name string
	Type string
}

// Relation is a relationship candidate before persistence.
type Relation struct {
	Source string
	Target string
	Type   string
}

// entityIndex maps doc-wide token indices to the entity mention covering them.
type entityIndex map[int]Mention

// resolveMentions returns the mention at the token plus the mentions of all
// conjunct dependents, so "Alice and Bob" resolves to both.
func resolveMentions(doc *analyzer.Doc, index entityIndex, tokenIndex int) []Mention {
	var found []Mention
	if m, ok := index[tokenIndex]; ok {
		found = append(found, m)
	}
	for _, child := range doc.Children(tokenIndex) {
		if child.Dep == "conj" {
			found = append(found, resolveMentions(doc, index, child.Index)...)
		}
	}
	return found
}

// extractVerbRelations handles active and passive verb constructions.
// In passive voice the grammatical subject is the relationship target and the
// agent is the source, so "X was audited by Y" yields (Y, X, AUDITED_BY).
func extractVerbRelations(doc *analyzer.Doc, index entityIndex, token analyzer.Token, taxonomy *Taxonomy) []Relation {
	var subjects []Mention
	var objects []Mention
	var relType string

	isPassive := false
	for _, child := range doc.Children(token.Index) {
		if child.Dep == "auxpass" {
			isPassive = true
			break
		}
	}

	lemma := strings.ToLower(token.Lemma)

	if isPassive {
		for _, child := range doc.Children(token.Index) {
			if child.Dep == "nsubjpass" {
				objects = append(objects, resolveMentions(doc, index, child.Index)...)
			}
			if child.Dep == "agent" {
				for _, grandchild := range doc.Children(child.Index) {
					if grandchild.Dep == "pobj" {
						subjects = append(subjects, resolveMentions(doc, index, grandchild.Index)...)
					}
				}
			}
		}
	} else {
		for _, child := range doc.Children(token.Index) {
			if child.Dep == "nsubj" {
				subjects = append(subjects, resolveMentions(doc, index, child.Index)...)
			}
		}

		for _, child := range doc.Children(token.Index) {
			if child.Dep == "dobj" || child.Dep == "attr" {
				found := resolveMentions(doc, index, child.Index)
				if len(found) > 0 {
					objects = append(objects, found...)
				} else {
					// Not an entity itself, look one level down
					// (e.g. "revealed discrepancies in revenue").
					for _, grandchild := range doc.Children(child.Index) {
						objects = append(objects, resolveMentions(doc, index, grandchild.Index)...)
					}
				}
			}

			if child.Dep == "prep" {
				for _, grandchild := range doc.Children(child.Index) {
					if grandchild.Dep == "pobj" {
						compound := lemma + "_" + strings.ToLower(child.Text)
						if relation, ok := taxonomy.RelationForLemma(compound); ok {
							relType = relation
							objects = append(objects, resolveMentions(doc, index, grandchild.Index)...)
						} else if len(objects) == 0 {
							objects = append(objects, resolveMentions(doc, index, grandchild.Index)...)
						}
					}
				}
			}
		}
	}

	if relType == "" {
		if relation, ok := taxonomy.RelationForLemma(lemma); ok {
			relType = relation
		}
	}
	if relType == "" && len(subjects) > 0 && len(objects) > 0 {
		relType = strings.ToUpper(lemma)
	}

	if relType == "" {
		return nil
	}

	var relations []Relation
	for _, src := range subjects {
		for _, tgt := range objects {
			if src != tgt {
				relations = append(relations, Relation{Source: src.Name, Target: tgt.Name, Type: relType})
			}
		}
	}
	return relations
}

// extractPossessives handles possessive constructions like "Alice's account".
func extractPossessives(doc *analyzer.Doc, index entityIndex, token analyzer.Token) []Relation {
	owners := resolveMentions(doc, index, token.Index)
	assets := resolveMentions(doc, index, token.HeadIndex)

	var relations []Relation
	for _, owner := range owners {
		for _, asset := range assets {
			if owner != asset {
				relations = append(relations, Relation{Source: owner.Name, Target: asset.Name, Type: "OWNS"})
			}
		}
	}
	return relations
}

// extractAppositions handles appositions like "Alice, CEO of X". The apposed
// phrase is the source and the head the target.
func extractAppositions(doc *analyzer.Doc, index entityIndex, token analyzer.Token) []Relation {
	heads := resolveMentions(doc, index, token.HeadIndex)
	apposed := resolveMentions(doc, index, token.Index)

	var relations []Relation
	for _, e1 := range heads {
		for _, e2 := range apposed {
			if e1 != e2 {
				relations = append(relations, Relation{Source: e2.Name, Target: e1.Name, Type: "IS_A"})
			}
		}
	}
	return relations
}

// extractPrepositionalLinks handles noun-headed prepositions like
// "compliance with regulations". The noun_preposition compound is checked
// against the verb table first, then a small generic preposition mapping.
func extractPrepositionalLinks(doc *analyzer.Doc, index entityIndex, token analyzer.Token, taxonomy *Taxonomy) []Relation {
	head := doc.Head(token.Index)
	if head.POS != "NOUN" && head.POS != "PROPN" {
		return nil
	}

	sources := resolveMentions(doc, index, token.HeadIndex)
	var targets []Mention
	for _, child := range doc.Children(token.Index) {
		if child.Dep == "pobj" {
			targets = append(targets, resolveMentions(doc, index, child.Index)...)
		}
	}

	if len(sources) == 0 || len(targets) == 0 {
		return nil
	}

	prepText := strings.ToLower(token.Text)
	compound := strings.ToLower(head.Lemma) + "_" + prepText

	relType, ok := taxonomy.RelationForLemma(compound)
	if !ok {
		switch prepText {
		case "of":
			relType = "PART_OF"
		case "in":
			relType = "LOCATED_IN"
		case "with":
			relType = "ASSOCIATED_WITH"
		case "for":
			relType = "FOR"
		default:
			relType = model.RelationTypeRelated
		}
	}

	var relations []Relation
	for _, src := range sources {
		for _, tgt := range targets {
			if src != tgt {
				relations = append(relations, Relation{Source: src.Name, Target: tgt.Name, Type: relType})
			}
		}
	}
	return relations
}

// extractModifiers handles compound, adjectival and nominal modifiers like
// "Apple stock" or "high-risk loan". The modifier is the source.
func extractModifiers(doc *analyzer.Doc, index entityIndex, token analyzer.Token) []Relation {
	heads := resolveMentions(doc, index, token.HeadIndex)
	modifiers := resolveMentions(doc, index, token.Index)

	var relations []Relation
	for _, head := range heads {
		for _, modifier := range modifiers {
			if head != modifier {
				relations = append(relations, Relation{Source: modifier.Name, Target: head.Name, Type: "MODIFIES"})
			}
		}
	}
	return relations
}

// pairKey is an order-insensitive entity name pair.
func pairKey(a string, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}

// extractCoOccurrences links entities sharing a sentence that no grammar rule
// connected, in either direction, as a low-confidence fallback.
func extractCoOccurrences(doc *analyzer.Doc, index entityIndex, existing []Relation) []Relation {
	existingPairs := make(map[string]bool, len(existing))
	for _, relation := range existing {
		existingPairs[pairKey(relation.Source, relation.Target)] = true
	}

	var relations []Relation
	for _, sentence := range doc.Sentences {
		var sentenceMentions []Mention
		seenNames := make(map[string]bool)

		for tokenIndex := sentence.Start; tokenIndex < sentence.End; tokenIndex++ {
			if m, ok := index[tokenIndex]; ok && !seenNames[m.Name] {
				sentenceMentions = append(sentenceMentions, m)
				seenNames[m.Name] = true
			}
		}

		for i := 0; i < len(sentenceMentions); i++ {
			for j := i + 1; j < len(sentenceMentions); j++ {
				key := pairKey(sentenceMentions[i].Name, sentenceMentions[j].Name)
				if !existingPairs[key] {
					relations = append(relations, Relation{
						Source: sentenceMentions[i].Name,
						Target: sentenceMentions[j].Name,
						Type:   model.RelationTypeRelated,
					})
					existingPairs[key] = true
				}
			}
		}
	}
	return relations
}

package extraction

import (
	"testing"

	"github.com/siherrmann/graphrag/analyzer"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
)

// newTestDoc builds a doc from tokens, fills sentence boundaries with a single
// sentence and prepares the child index.
func newTestDoc(tokens []analyzer.Token) *analyzer.Doc {
	doc := &analyzer.Doc{
		Tokens:    tokens,
		Sentences: []analyzer.Sentence{{Start: 0, End: len(tokens)}},
	}
	doc.BuildChildIndex()
	return doc
}

func TestExtractVerbRelations(t *testing.T) {
	taxonomy := DefaultTaxonomy()

	t.Run("Valid call extractVerbRelations with active voice", func(t *testing.T) {
		// Alice owns Acme Corp
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "nsubj", HeadIndex: 1},
			{Index: 1, Text: "owns", Lemma: "own", POS: "VERB", Dep: "ROOT", HeadIndex: 1},
			{Index: 2, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "compound", HeadIndex: 3},
			{Index: 3, Text: "Corp", Lemma: "Corp", POS: "PROPN", Dep: "dobj", HeadIndex: 1},
		})
		index := entityIndex{
			0: {Name: "Alice", Type: "PERSON"},
			2: {Name: "Acme Corp", Type: "ORG"},
			3: {Name: "Acme Corp", Type: "ORG"},
		}

		relations := extractVerbRelations(doc, index, doc.Tokens[1], taxonomy)

		assert.Equal(t, []Relation{{Source: "Alice", Target: "Acme Corp", Type: "OWNS"}}, relations,
			"Expected active voice to yield subject to object relation")
	})

	t.Run("Valid call extractVerbRelations with passive voice", func(t *testing.T) {
		// Acme Corp was audited by Deloitte
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "compound", HeadIndex: 1},
			{Index: 1, Text: "Corp", Lemma: "Corp", POS: "PROPN", Dep: "nsubjpass", HeadIndex: 3},
			{Index: 2, Text: "was", Lemma: "be", POS: "AUX", Dep: "auxpass", HeadIndex: 3},
			{Index: 3, Text: "audited", Lemma: "audit", POS: "VERB", Dep: "ROOT", HeadIndex: 3},
			{Index: 4, Text: "by", Lemma: "by", POS: "ADP", Dep: "agent", HeadIndex: 3},
			{Index: 5, Text: "Deloitte", Lemma: "Deloitte", POS: "PROPN", Dep: "pobj", HeadIndex: 4},
		})
		index := entityIndex{
			0: {Name: "Acme Corp", Type: "ORG"},
			1: {Name: "Acme Corp", Type: "ORG"},
			5: {Name: "Deloitte", Type: "ORG"},
		}

		relations := extractVerbRelations(doc, index, doc.Tokens[3], taxonomy)

		assert.Equal(t, []Relation{{Source: "Deloitte", Target: "Acme Corp", Type: "AUDITED_BY"}}, relations,
			"Expected passive voice to make the agent the source")
	})

	t.Run("Valid call extractVerbRelations with conjunct subjects", func(t *testing.T) {
		// Alice and Bob own Acme Corp
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "nsubj", HeadIndex: 3},
			{Index: 1, Text: "and", Lemma: "and", POS: "CCONJ", Dep: "cc", HeadIndex: 0},
			{Index: 2, Text: "Bob", Lemma: "Bob", POS: "PROPN", Dep: "conj", HeadIndex: 0},
			{Index: 3, Text: "own", Lemma: "own", POS: "VERB", Dep: "ROOT", HeadIndex: 3},
			{Index: 4, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "compound", HeadIndex: 5},
			{Index: 5, Text: "Corp", Lemma: "Corp", POS: "PROPN", Dep: "dobj", HeadIndex: 3},
		})
		index := entityIndex{
			0: {Name: "Alice", Type: "PERSON"},
			2: {Name: "Bob", Type: "PERSON"},
			4: {Name: "Acme Corp", Type: "ORG"},
			5: {Name: "Acme Corp", Type: "ORG"},
		}

		relations := extractVerbRelations(doc, index, doc.Tokens[3], taxonomy)

		assert.Len(t, relations, 2, "Expected one relation per conjunct subject")
		assert.Contains(t, relations, Relation{Source: "Alice", Target: "Acme Corp", Type: "OWNS"})
		assert.Contains(t, relations, Relation{Source: "Bob", Target: "Acme Corp", Type: "OWNS"})
	})

	t.Run("Valid call extractVerbRelations with prepositional compound", func(t *testing.T) {
		// Alice invests in bonds
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "nsubj", HeadIndex: 1},
			{Index: 1, Text: "invests", Lemma: "invest", POS: "VERB", Dep: "ROOT", HeadIndex: 1},
			{Index: 2, Text: "in", Lemma: "in", POS: "ADP", Dep: "prep", HeadIndex: 1},
			{Index: 3, Text: "bonds", Lemma: "bond", POS: "NOUN", Dep: "pobj", HeadIndex: 2},
		})
		index := entityIndex{
			0: {Name: "Alice", Type: "PERSON"},
			3: {Name: "bonds", Type: "SECURITY"},
		}

		relations := extractVerbRelations(doc, index, doc.Tokens[1], taxonomy)

		assert.Equal(t, []Relation{{Source: "Alice", Target: "bonds", Type: "INVESTS_IN"}}, relations,
			"Expected the verb preposition compound to set the relation type")
	})

	t.Run("Valid call extractVerbRelations with unknown verb", func(t *testing.T) {
		// Alice founded Acme Corp
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "nsubj", HeadIndex: 1},
			{Index: 1, Text: "founded", Lemma: "found", POS: "VERB", Dep: "ROOT", HeadIndex: 1},
			{Index: 2, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "compound", HeadIndex: 3},
			{Index: 3, Text: "Corp", Lemma: "Corp", POS: "PROPN", Dep: "dobj", HeadIndex: 1},
		})
		index := entityIndex{
			0: {Name: "Alice", Type: "PERSON"},
			2: {Name: "Acme Corp", Type: "ORG"},
			3: {Name: "Acme Corp", Type: "ORG"},
		}

		relations := extractVerbRelations(doc, index, doc.Tokens[1], taxonomy)

		assert.Equal(t, []Relation{{Source: "Alice", Target: "Acme Corp", Type: "FOUND"}}, relations,
			"Expected unknown verb with both ends to use the uppercased lemma")
	})

	t.Run("Valid call extractVerbRelations with object grandchild fallback", func(t *testing.T) {
		// Acme reported revenue figures
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "nsubj", HeadIndex: 1},
			{Index: 1, Text: "reported", Lemma: "report", POS: "VERB", Dep: "ROOT", HeadIndex: 1},
			{Index: 2, Text: "revenue", Lemma: "revenue", POS: "NOUN", Dep: "compound", HeadIndex: 3},
			{Index: 3, Text: "figures", Lemma: "figure", POS: "NOUN", Dep: "dobj", HeadIndex: 1},
		})
		index := entityIndex{
			0: {Name: "Acme", Type: "ORG"},
			2: {Name: "revenue", Type: "FINANCIAL_METRIC"},
		}

		relations := extractVerbRelations(doc, index, doc.Tokens[1], taxonomy)

		assert.Equal(t, []Relation{{Source: "Acme", Target: "revenue", Type: "REPORT"}}, relations,
			"Expected a non-entity object to fall through to its dependents")
	})

	t.Run("Valid call extractVerbRelations with missing ends", func(t *testing.T) {
		// Markets moved
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Markets", Lemma: "market", POS: "NOUN", Dep: "nsubj", HeadIndex: 1},
			{Index: 1, Text: "moved", Lemma: "move", POS: "VERB", Dep: "ROOT", HeadIndex: 1},
		})
		index := entityIndex{0: {Name: "market", Type: "RISK"}}

		relations := extractVerbRelations(doc, index, doc.Tokens[1], taxonomy)

		assert.Empty(t, relations, "Expected unknown verb without objects to yield no relation")
	})
}

func TestExtractPossessives(t *testing.T) {
	t.Run("Valid call extractPossessives", func(t *testing.T) {
		// Alice's account
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "poss", HeadIndex: 2},
			{Index: 1, Text: "'s", Lemma: "'s", POS: "PART", Dep: "case", HeadIndex: 0},
			{Index: 2, Text: "account", Lemma: "account", POS: "NOUN", Dep: "ROOT", HeadIndex: 2},
		})
		index := entityIndex{
			0: {Name: "Alice", Type: "PERSON"},
			2: {Name: "account", Type: "ACCOUNT"},
		}

		relations := extractPossessives(doc, index, doc.Tokens[0])

		assert.Equal(t, []Relation{{Source: "Alice", Target: "account", Type: "OWNS"}}, relations,
			"Expected the possessor to own the possessed")
	})
}

func TestExtractAppositions(t *testing.T) {
	t.Run("Valid call extractAppositions", func(t *testing.T) {
		// Acme Corp, a company
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "compound", HeadIndex: 1},
			{Index: 1, Text: "Corp", Lemma: "Corp", POS: "PROPN", Dep: "ROOT", HeadIndex: 1},
			{Index: 2, Text: ",", Lemma: ",", POS: "PUNCT", Dep: "punct", HeadIndex: 1},
			{Index: 3, Text: "a", Lemma: "a", POS: "DET", Dep: "det", HeadIndex: 4},
			{Index: 4, Text: "company", Lemma: "company", POS: "NOUN", Dep: "appos", HeadIndex: 1},
		})
		index := entityIndex{
			0: {Name: "Acme Corp", Type: "ORG"},
			1: {Name: "Acme Corp", Type: "ORG"},
			4: {Name: "company", Type: "ORG"},
		}

		relations := extractAppositions(doc, index, doc.Tokens[4])

		assert.Equal(t, []Relation{{Source: "company", Target: "Acme Corp", Type: "IS_A"}}, relations,
			"Expected the apposed phrase to be the source of IS_A")
	})
}

func TestExtractPrepositionalLinks(t *testing.T) {
	taxonomy := DefaultTaxonomy()

	newPrepDoc := func(headText, headLemma, prepText, objectText string) *analyzer.Doc {
		return newTestDoc([]analyzer.Token{
			{Index: 0, Text: headText, Lemma: headLemma, POS: "NOUN", Dep: "ROOT", HeadIndex: 0},
			{Index: 1, Text: prepText, Lemma: prepText, POS: "ADP", Dep: "prep", HeadIndex: 0},
			{Index: 2, Text: objectText, Lemma: objectText, POS: "NOUN", Dep: "pobj", HeadIndex: 1},
		})
	}

	t.Run("Valid call extractPrepositionalLinks with of", func(t *testing.T) {
		doc := newPrepDoc("branch", "branch", "of", "bank")
		index := entityIndex{
			0: {Name: "branch", Type: "ORG"},
			2: {Name: "bank", Type: "ORG"},
		}

		relations := extractPrepositionalLinks(doc, index, doc.Tokens[1], taxonomy)

		assert.Equal(t, []Relation{{Source: "branch", Target: "bank", Type: "PART_OF"}}, relations,
			"Expected of to map to PART_OF")
	})

	t.Run("Valid call extractPrepositionalLinks with in", func(t *testing.T) {
		doc := newPrepDoc("branch", "branch", "in", "Mumbai")
		index := entityIndex{
			0: {Name: "branch", Type: "ORG"},
			2: {Name: "Mumbai", Type: "GPE"},
		}

		relations := extractPrepositionalLinks(doc, index, doc.Tokens[1], taxonomy)

		assert.Equal(t, []Relation{{Source: "branch", Target: "Mumbai", Type: "LOCATED_IN"}}, relations,
			"Expected in to map to LOCATED_IN")
	})

	t.Run("Valid call extractPrepositionalLinks with noun compound", func(t *testing.T) {
		// income subject to tax
		doc := newPrepDoc("subject", "subject", "to", "tax")
		index := entityIndex{
			0: {Name: "income", Type: "FINANCIAL_METRIC"},
			2: {Name: "tax", Type: "TAX"},
		}

		relations := extractPrepositionalLinks(doc, index, doc.Tokens[1], taxonomy)

		assert.Equal(t, []Relation{{Source: "income", Target: "tax", Type: "SUBJECT_TO"}}, relations,
			"Expected the noun preposition compound to win over the generic mapping")
	})

	t.Run("Valid call extractPrepositionalLinks with unknown preposition", func(t *testing.T) {
		doc := newPrepDoc("penalty", "penalty", "under", "section")
		index := entityIndex{
			0: {Name: "penalty", Type: "REGULATION"},
			2: {Name: "section", Type: "REGULATION"},
		}

		relations := extractPrepositionalLinks(doc, index, doc.Tokens[1], taxonomy)

		assert.Equal(t, []Relation{{Source: "penalty", Target: "section", Type: model.RelationTypeRelated}}, relations,
			"Expected unknown prepositions to fall back to RELATED_TO")
	})

	t.Run("Valid call extractPrepositionalLinks with verb head", func(t *testing.T) {
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "trades", Lemma: "trade", POS: "VERB", Dep: "ROOT", HeadIndex: 0},
			{Index: 1, Text: "on", Lemma: "on", POS: "ADP", Dep: "prep", HeadIndex: 0},
			{Index: 2, Text: "Sensex", Lemma: "sensex", POS: "PROPN", Dep: "pobj", HeadIndex: 1},
		})
		index := entityIndex{2: {Name: "sensex", Type: "INDEX"}}

		relations := extractPrepositionalLinks(doc, index, doc.Tokens[1], taxonomy)

		assert.Empty(t, relations, "Expected verb-headed prepositions to be left to the verb rule")
	})
}

func TestExtractModifiers(t *testing.T) {
	t.Run("Valid call extractModifiers", func(t *testing.T) {
		// Apple stock
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Apple", Lemma: "Apple", POS: "PROPN", Dep: "compound", HeadIndex: 1},
			{Index: 1, Text: "stock", Lemma: "stock", POS: "NOUN", Dep: "ROOT", HeadIndex: 1},
		})
		index := entityIndex{
			0: {Name: "Apple", Type: "ORG"},
			1: {Name: "stock", Type: "SECURITY"},
		}

		relations := extractModifiers(doc, index, doc.Tokens[0])

		assert.Equal(t, []Relation{{Source: "Apple", Target: "stock", Type: "MODIFIES"}}, relations,
			"Expected the modifier to be the source of MODIFIES")
	})

	t.Run("Valid call extractModifiers with shared mention", func(t *testing.T) {
		// Both tokens of a multi token entity resolve to the same mention.
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "compound", HeadIndex: 1},
			{Index: 1, Text: "Corp", Lemma: "Corp", POS: "PROPN", Dep: "ROOT", HeadIndex: 1},
		})
		index := entityIndex{
			0: {Name: "Acme Corp", Type: "ORG"},
			1: {Name: "Acme Corp", Type: "ORG"},
		}

		relations := extractModifiers(doc, index, doc.Tokens[0])

		assert.Empty(t, relations, "Expected no self relation within a single entity span")
	})
}

func TestExtractCoOccurrences(t *testing.T) {
	t.Run("Valid call extractCoOccurrences", func(t *testing.T) {
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "nsubj", HeadIndex: 1},
			{Index: 1, Text: "met", Lemma: "meet", POS: "VERB", Dep: "ROOT", HeadIndex: 1},
			{Index: 2, Text: "Bob", Lemma: "Bob", POS: "PROPN", Dep: "dobj", HeadIndex: 1},
		})
		index := entityIndex{
			0: {Name: "Alice", Type: "PERSON"},
			2: {Name: "Bob", Type: "PERSON"},
		}

		relations := extractCoOccurrences(doc, index, nil)

		assert.Equal(t, []Relation{{Source: "Alice", Target: "Bob", Type: model.RelationTypeRelated}}, relations,
			"Expected unlinked sentence mentions to be connected")
	})

	t.Run("Valid call extractCoOccurrences with existing relation", func(t *testing.T) {
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "nsubj", HeadIndex: 1},
			{Index: 1, Text: "met", Lemma: "meet", POS: "VERB", Dep: "ROOT", HeadIndex: 1},
			{Index: 2, Text: "Bob", Lemma: "Bob", POS: "PROPN", Dep: "dobj", HeadIndex: 1},
		})
		index := entityIndex{
			0: {Name: "Alice", Type: "PERSON"},
			2: {Name: "Bob", Type: "PERSON"},
		}
		existing := []Relation{{Source: "Bob", Target: "Alice", Type: "KNOWS"}}

		relations := extractCoOccurrences(doc, index, existing)

		assert.Empty(t, relations, "Expected an existing relation in either direction to suppress the fallback")
	})
}

package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/siherrmann/graphrag/analyzer"
	"github.com/stretchr/testify/assert"
)

type fakeAnalyzer struct {
	doc *analyzer.Doc
	err error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, text string) (*analyzer.Doc, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.doc.Text = text
	return a.doc, nil
}

type fakeNERTagger struct {
	entities []analyzer.NamedEntity
	err      error
}

func (t *fakeNERTagger) Recognize(text string) ([]analyzer.NamedEntity, error) {
	return t.entities, t.err
}

func TestNewEngine(t *testing.T) {
	t.Run("Valid call NewEngine with defaults", func(t *testing.T) {
		engine := NewEngine(&fakeAnalyzer{}, nil, nil, nil)

		assert.NotNil(t, engine, "Expected NewEngine to return a non-nil engine")
		assert.NotNil(t, engine.taxonomy, "Expected nil taxonomy to fall back to the default")
		assert.NotNil(t, engine.logger, "Expected nil logger to fall back to the default")
	})
}

func TestExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid call Extract with verb relation", func(t *testing.T) {
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "nsubj", HeadIndex: 1, CharStart: 0, CharEnd: 5},
			{Index: 1, Text: "owns", Lemma: "own", POS: "VERB", Dep: "ROOT", HeadIndex: 1, CharStart: 6, CharEnd: 10},
			{Index: 2, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "compound", HeadIndex: 3, CharStart: 11, CharEnd: 15},
			{Index: 3, Text: "Corp", Lemma: "Corp", POS: "PROPN", Dep: "dobj", HeadIndex: 1, CharStart: 16, CharEnd: 20},
		})
		doc.Entities = []analyzer.EntitySpan{
			{Text: "Alice", Label: "PERSON", Start: 0, End: 1},
			{Text: "Acme Corp", Label: "ORG", Start: 2, End: 4},
		}
		engine := NewEngine(&fakeAnalyzer{doc: doc}, nil, nil, nil)

		result, err := engine.Extract(ctx, "Alice owns Acme Corp")

		assert.NoError(t, err, "Expected Extract to not return an error")
		assert.Contains(t, result.Entities, Mention{Name: "Alice", Type: "PERSON"})
		assert.Contains(t, result.Entities, Mention{Name: "Acme Corp", Type: "ORG"})
		assert.Equal(t, []Relation{{Source: "Alice", Target: "Acme Corp", Type: "OWNS"}}, result.Relationships,
			"Expected the verb rule to link the entities and the fallback to stay quiet")
	})

	t.Run("Valid call Extract with dictionary term", func(t *testing.T) {
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Tax", Lemma: "tax", POS: "NOUN", Dep: "nsubj", HeadIndex: 2, CharStart: 0, CharEnd: 3},
			{Index: 1, Text: "is", Lemma: "be", POS: "AUX", Dep: "aux", HeadIndex: 2, CharStart: 4, CharEnd: 6},
			{Index: 2, Text: "due", Lemma: "due", POS: "ADJ", Dep: "ROOT", HeadIndex: 2, CharStart: 7, CharEnd: 10},
		})
		engine := NewEngine(&fakeAnalyzer{doc: doc}, nil, nil, nil)

		result, err := engine.Extract(ctx, "Tax is due")

		assert.NoError(t, err, "Expected Extract to not return an error")
		assert.Equal(t, []Mention{{Name: "tax", Type: "TAX"}}, result.Entities,
			"Expected the dictionary to claim and normalize the term")
	})

	t.Run("Valid call Extract with dictionary over entity span", func(t *testing.T) {
		// The span label loses against the dictionary claim on the same token.
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "revenue", Lemma: "revenue", POS: "NOUN", Dep: "ROOT", HeadIndex: 0, CharStart: 0, CharEnd: 7},
		})
		doc.Entities = []analyzer.EntitySpan{{Text: "revenue", Label: "ORG", Start: 0, End: 1}}
		engine := NewEngine(&fakeAnalyzer{doc: doc}, nil, nil, nil)

		result, err := engine.Extract(ctx, "revenue")

		assert.NoError(t, err, "Expected Extract to not return an error")
		assert.Equal(t, []Mention{{Name: "revenue", Type: "FINANCIAL_METRIC"}}, result.Entities,
			"Expected the dictionary label to win over the span label")
	})

	t.Run("Valid call Extract with invalid span label", func(t *testing.T) {
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "42", Lemma: "42", POS: "NUM", Dep: "ROOT", HeadIndex: 0, CharStart: 0, CharEnd: 2},
		})
		doc.Entities = []analyzer.EntitySpan{{Text: "42", Label: "CARDINAL", Start: 0, End: 1}}
		engine := NewEngine(&fakeAnalyzer{doc: doc}, nil, nil, nil)

		result, err := engine.Extract(ctx, "42")

		assert.NoError(t, err, "Expected Extract to not return an error")
		assert.Empty(t, result.Entities, "Expected spans with filtered labels to be dropped")
	})

	t.Run("Valid call Extract with NER overlay", func(t *testing.T) {
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "Deloitte", Lemma: "Deloitte", POS: "PROPN", Dep: "ROOT", HeadIndex: 0, CharStart: 0, CharEnd: 8},
		})
		ner := &fakeNERTagger{entities: []analyzer.NamedEntity{
			{Text: "Deloitte", Label: "ORG", Start: 0, End: 8, Score: 0.99},
		}}
		engine := NewEngine(&fakeAnalyzer{doc: doc}, ner, nil, nil)

		result, err := engine.Extract(ctx, "Deloitte")

		assert.NoError(t, err, "Expected Extract to not return an error")
		assert.Equal(t, []Mention{{Name: "Deloitte", Type: "ORG"}}, result.Entities,
			"Expected the overlay to claim tokens the parse left unclaimed")
	})

	t.Run("Valid call Extract with failing NER overlay", func(t *testing.T) {
		doc := newTestDoc([]analyzer.Token{
			{Index: 0, Text: "tax", Lemma: "tax", POS: "NOUN", Dep: "ROOT", HeadIndex: 0, CharStart: 0, CharEnd: 3},
		})
		ner := &fakeNERTagger{err: errors.New("model not loaded")}
		engine := NewEngine(&fakeAnalyzer{doc: doc}, ner, nil, nil)

		result, err := engine.Extract(ctx, "tax")

		assert.NoError(t, err, "Expected a failing overlay to not fail the extraction")
		assert.Equal(t, []Mention{{Name: "tax", Type: "TAX"}}, result.Entities,
			"Expected the parse entities to survive an overlay failure")
	})

	t.Run("Valid call Extract deduplicates relations", func(t *testing.T) {
		// Two sentences repeating the same fact yield the relation once.
		doc := &analyzer.Doc{
			Tokens: []analyzer.Token{
				{Index: 0, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "nsubj", HeadIndex: 1, CharStart: 0, CharEnd: 5},
				{Index: 1, Text: "owns", Lemma: "own", POS: "VERB", Dep: "ROOT", HeadIndex: 1, CharStart: 6, CharEnd: 10},
				{Index: 2, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "dobj", HeadIndex: 1, CharStart: 11, CharEnd: 15},
				{Index: 3, Text: "Alice", Lemma: "Alice", POS: "PROPN", Dep: "nsubj", HeadIndex: 4, CharStart: 17, CharEnd: 22},
				{Index: 4, Text: "owns", Lemma: "own", POS: "VERB", Dep: "ROOT", HeadIndex: 4, CharStart: 23, CharEnd: 27},
				{Index: 5, Text: "Acme", Lemma: "Acme", POS: "PROPN", Dep: "dobj", HeadIndex: 4, CharStart: 28, CharEnd: 32},
			},
			Entities: []analyzer.EntitySpan{
				{Text: "Alice", Label: "PERSON", Start: 0, End: 1},
				{Text: "Acme", Label: "ORG", Start: 2, End: 3},
				{Text: "Alice", Label: "PERSON", Start: 3, End: 4},
				{Text: "Acme", Label: "ORG", Start: 5, End: 6},
			},
			Sentences: []analyzer.Sentence{{Start: 0, End: 3}, {Start: 3, End: 6}},
		}
		doc.BuildChildIndex()
		engine := NewEngine(&fakeAnalyzer{doc: doc}, nil, nil, nil)

		result, err := engine.Extract(ctx, "Alice owns Acme. Alice owns Acme")

		assert.NoError(t, err, "Expected Extract to not return an error")
		assert.Equal(t, []Relation{{Source: "Alice", Target: "Acme", Type: "OWNS"}}, result.Relationships,
			"Expected repeated relations to be deduplicated")
	})

	t.Run("Invalid call Extract with failing analyzer", func(t *testing.T) {
		engine := NewEngine(&fakeAnalyzer{err: errors.New("parser unreachable")}, nil, nil, nil)

		result, err := engine.Extract(ctx, "anything")

		assert.Error(t, err, "Expected Extract to return the analyzer error")
		assert.Nil(t, result, "Expected Extract to return a nil result")
	})
}

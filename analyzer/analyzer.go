package analyzer

import (
	"context"
	"strings"
)

// Token is a single token of an analyzed text with its dependency-parse
// attributes. HeadIndex refers to the doc-wide index of the syntactic head;
// a root token has HeadIndex equal to its own Index. CharStart and CharEnd
// are byte offsets into the original text.
type Token struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Lemma     string `json:"lemma"`
	POS       string `json:"pos"`
	Dep       string `json:"dep"`
	HeadIndex int    `json:"head_index"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
}

// EntitySpan is a named entity span over the analyzed text.
// Start and End are doc-wide token indices, End exclusive.
type EntitySpan struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Sentence is a sentence span over the token slice, End exclusive.
type Sentence struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Doc is the result of analyzing a text: tokens with dependency attributes,
// entity spans and sentence boundaries.
type Doc struct {
	Text      string       `json:"text"`
	Tokens    []Token      `json:"tokens"`
	Entities  []EntitySpan `json:"entities"`
	Sentences []Sentence   `json:"sentences"`

	children map[int][]int
}

// Analyzer produces a dependency-parsed Doc for a text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Doc, error)
}

// BuildChildIndex builds the head index to child index lookup used by the
// traversal helpers. It must be called once after the token slice is final.
func (d *Doc) BuildChildIndex() {
	d.children = make(map[int][]int, len(d.Tokens))
	for _, token := range d.Tokens {
		if token.HeadIndex == token.Index {
			continue
		}
		d.children[token.HeadIndex] = append(d.children[token.HeadIndex], token.Index)
	}
}

// Children returns the direct dependents of the token at index.
func (d *Doc) Children(index int) []Token {
	childIndices := d.children[index]
	tokens := make([]Token, 0, len(childIndices))
	for _, childIndex := range childIndices {
		tokens = append(tokens, d.Tokens[childIndex])
	}
	return tokens
}

// ChildrenWithDep returns the direct dependents of the token at index that
// carry the given dependency label.
func (d *Doc) ChildrenWithDep(index int, dep string) []Token {
	var tokens []Token
	for _, childIndex := range d.children[index] {
		if d.Tokens[childIndex].Dep == dep {
			tokens = append(tokens, d.Tokens[childIndex])
		}
	}
	return tokens
}

// Head returns the syntactic head of the token at index.
func (d *Doc) Head(index int) Token {
	return d.Tokens[d.Tokens[index].HeadIndex]
}

// SentenceOf returns the sentence span containing the token at index.
func (d *Doc) SentenceOf(index int) Sentence {
	for _, sentence := range d.Sentences {
		if index >= sentence.Start && index < sentence.End {
			return sentence
		}
	}
	return Sentence{Start: 0, End: len(d.Tokens)}
}

// EntityAt returns the entity span covering the token at index, if any.
func (d *Doc) EntityAt(index int) (EntitySpan, bool) {
	for _, entity := range d.Entities {
		if index >= entity.Start && index < entity.End {
			return entity, true
		}
	}
	return EntitySpan{}, false
}

// SpanText joins the token texts of the half-open range [start, end).
func (d *Doc) SpanText(start int, end int) string {
	parts := make([]string, 0, end-start)
	for i := start; i < end && i < len(d.Tokens); i++ {
		parts = append(parts, d.Tokens[i].Text)
	}
	return strings.Join(parts, " ")
}

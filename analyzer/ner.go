package analyzer

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/graphrag/helper"
)

// NamedEntity is a named entity recognized by the NER overlay with character
// offsets into the analyzed text.
type NamedEntity struct {
	Text  string
	Label string
	Start int
	End   int
	Score float32
}

// NERTagger recognizes named entities in free text.
type NERTagger interface {
	Recognize(text string) ([]NamedEntity, error)
}

// HugotNERTagger runs a token classification pipeline over text.
type HugotNERTagger struct {
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
}

// NewHugotNERTagger creates a NER tagger using the
// KnightsAnalytics/distilbert-NER model, downloading it if needed.
// Detects PERSON, ORGANIZATION, LOCATION and MISC entities.
func NewHugotNERTagger() (*HugotNERTagger, error) {
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return &HugotNERTagger{
		session:  session,
		pipeline: nerPipeline,
	}, nil
}

// Recognize runs NER on the text and returns the recognized spans.
func (t *HugotNERTagger) Recognize(text string) ([]NamedEntity, error) {
	result, err := t.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to run NER: %w", err)
	}

	if len(result.Entities) == 0 {
		return nil, nil
	}

	var entities []NamedEntity
	for _, entity := range result.Entities[0] {
		entities = append(entities, NamedEntity{
			Text:  strings.TrimSpace(entity.Word),
			Label: normalizeEntityLabel(entity.Entity),
			Start: int(entity.Start),
			End:   int(entity.End),
			Score: entity.Score,
		})
	}

	return entities, nil
}

// Close releases the underlying model session.
func (t *HugotNERTagger) Close() error {
	return t.session.Destroy()
}

// normalizeEntityLabel removes BIO tagging prefixes (B- for beginning, I- for inside)
func normalizeEntityLabel(label string) string {
	if strings.HasPrefix(label, "B-") {
		return label[2:]
	}
	if strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}

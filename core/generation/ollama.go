package generation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/graphrag/helper"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaModel = "mistral"

const systemPrompt = "You are a helpful assistant. Answer using only the provided context passages and relationships. If the context does not contain the answer, say so."

// OllamaGenerator answers questions with a local Ollama model.
type OllamaGenerator struct {
	llm    *ollama.LLM
	logger *slog.Logger
}

// NewOllamaGenerator creates a generator. Empty serverURL and modelName fall
// back to the OLLAMA_HOST environment variable and the mistral model.
func NewOllamaGenerator(serverURL string, modelName string, logger *slog.Logger) (*OllamaGenerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if serverURL == "" {
		serverURL = os.Getenv("OLLAMA_HOST")
	}
	if modelName == "" {
		modelName = defaultOllamaModel
	}

	options := []ollama.Option{ollama.WithModel(modelName)}
	if serverURL != "" {
		options = append(options, ollama.WithServerURL(serverURL))
	}

	llm, err := ollama.New(options...)
	if err != nil {
		return nil, helper.NewError("create ollama client", err)
	}

	return &OllamaGenerator{
		llm:    llm,
		logger: logger,
	}, nil
}

// Generate answers the query grounded on the context text.
func (g *OllamaGenerator) Generate(ctx context.Context, query string, contextText string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("Context:\n%s\nQuestion: %s", contextText, query)),
	}

	response, err := g.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", helper.NewError("generate answer", err)
	}

	if len(response.Choices) == 0 {
		return "", helper.NewError("generate answer", fmt.Errorf("model returned no choices"))
	}

	return response.Choices[0].Content, nil
}

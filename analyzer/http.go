package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/siherrmann/graphrag/helper"
)

// HTTPAnalyzer talks to a dependency-parse sidecar service that exposes a
// single POST /analyze endpoint accepting {"text": ...} and returning a Doc.
type HTTPAnalyzer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAnalyzer creates an analyzer client for the given base URL.
// If baseURL is empty the PARSER_URL environment variable is used, falling
// back to http://localhost:8000.
func NewHTTPAnalyzer(baseURL string) *HTTPAnalyzer {
	if baseURL == "" {
		baseURL = os.Getenv("PARSER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	return &HTTPAnalyzer{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Analyze sends the text to the sidecar and decodes the parsed Doc.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, text string) (*Doc, error) {
	requestBody, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, helper.NewError("marshal analyze request", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", bytes.NewReader(requestBody))
	if err != nil {
		return nil, helper.NewError("create analyze request", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := a.client.Do(request)
	if err != nil {
		return nil, helper.NewError("send analyze request", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, helper.NewError("analyze request", fmt.Errorf("unexpected status %v", response.StatusCode))
	}

	doc := &Doc{}
	err = json.NewDecoder(response.Body).Decode(doc)
	if err != nil {
		return nil, helper.NewError("decode analyze response", err)
	}

	doc.Text = text
	doc.BuildChildIndex()

	return doc, nil
}

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

var statements = []string{
	`Alice owns Acme Corp. Acme Corp invests in treasury bonds through its brokerage account.`,
	`Acme Corp was audited by Deloitte after discrepancies in revenue were reported.`,
	`The income tax refund for Acme Corp is processed by the Finance Ministry in India.`,
}

func main() {
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	g, err := graphrag.NewGraphRAG(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create graphrag: %v", err)
	}
	defer g.Close()

	// Extraction needs the dependency-parse sidecar (PARSER_URL), answers
	// need a running Ollama with the mistral model pulled.
	if err := g.UseDefaultExtraction("", 0); err != nil {
		log.Fatalf("Failed to set up extraction: %v", err)
	}
	if err := g.UseDefaultVectorSearch(""); err != nil {
		log.Fatalf("Failed to set up vector search: %v", err)
	}
	if err := g.UseOllamaGenerator("", "mistral"); err != nil {
		log.Fatalf("Failed to set up generator: %v", err)
	}

	doc := &model.Document{
		Title:  "Acme Corp Filings",
		Source: "qa_example",
	}
	if err := g.Documents.InsertDocument(doc); err != nil {
		log.Fatalf("Failed to insert document: %v", err)
	}

	for i, text := range statements {
		chunk := &model.Chunk{
			DocumentID:      doc.ID,
			PageNumber:      i + 1,
			Text:            text,
			ConfidenceScore: 100,
			CreationMethod:  "manual",
		}
		if err := g.Chunks.InsertChunk(chunk); err != nil {
			log.Fatalf("Failed to insert chunk %d: %v", i, err)
		}
	}

	ctx := context.Background()

	fmt.Println("Extracting knowledge graph...")
	if _, err := g.ExtractDocument(ctx, doc.ID); err != nil {
		log.Fatalf("Failed to extract document: %v", err)
	}

	fmt.Println("Indexing document...")
	if _, err := g.IndexDocument(ctx, doc.ID); err != nil {
		log.Fatalf("Failed to index document: %v", err)
	}

	question := "What is the relationship between Acme Corp and Deloitte?"
	fmt.Printf("\nQuestion: %s\n", question)

	answer, err := g.Answer(ctx, question, 5)
	if err != nil {
		log.Fatalf("Failed to answer: %v", err)
	}

	fmt.Printf("\nAnswer: %s\n", answer.Text)
	fmt.Printf("\nRetrieved %d chunks, %d graph entities, %d graph edges (%s query, %dms)\n",
		len(answer.Retrieval.Chunks),
		len(answer.Retrieval.Graph.Entities),
		len(answer.Retrieval.Graph.Relationships),
		answer.Retrieval.Type,
		answer.Retrieval.Stats.DurationMs)
}

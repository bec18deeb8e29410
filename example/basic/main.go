package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

var sampleChunks = []string{
	`Alice owns Acme Corp. The company manages a brokerage account at ICICI Bank.`,
	`Acme Corp was audited by Deloitte. The audit revealed discrepancies in revenue.`,
	`Income tax in India is collected by the Finance Ministry. The ministry publishes compliance regulations.`,
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
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

	// The extraction pipeline needs the dependency-parse sidecar, reachable
	// through PARSER_URL (default http://localhost:8000).
	if err := g.UseDefaultExtraction("", 0); err != nil {
		log.Fatalf("Failed to set up extraction: %v", err)
	}

	doc := &model.Document{
		Title:  "Financial Relationships Sample",
		Source: "basic_example",
		Metadata: model.Metadata{
			"topic": "financial entities",
		},
	}

	fmt.Println("Ingesting document...")
	if err := g.Documents.InsertDocument(doc); err != nil {
		log.Fatalf("Failed to insert document: %v", err)
	}

	for i, text := range sampleChunks {
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

	fmt.Println("Extracting knowledge graph...")
	stats, err := g.ExtractDocument(context.Background(), doc.ID)
	if err != nil {
		log.Fatalf("Failed to extract document: %v", err)
	}
	fmt.Printf("Extracted %d entities and %d relationships from %d chunks in %dms\n",
		stats.Entities, stats.Relationships, stats.Chunks, stats.DurationMs)

	entities, err := g.Entities.SelectEntitiesByDocument(doc.ID)
	if err != nil {
		log.Fatalf("Failed to select entities: %v", err)
	}

	fmt.Println("\nExtracted entities:")
	for _, entity := range entities {
		fmt.Printf("  %-25s %s\n", entity.Text, entity.Type)
	}
}

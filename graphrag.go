package graphrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/analyzer"
	"github.com/siherrmann/graphrag/core/extraction"
	"github.com/siherrmann/graphrag/core/generation"
	"github.com/siherrmann/graphrag/core/retrieval"
	"github.com/siherrmann/graphrag/core/vector"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/mirror"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// GraphRAG provides a unified interface to the graph store, the extraction
// pipeline and hybrid retrieval
type GraphRAG struct {
	DB            *helper.Database
	Documents     *database.DocumentsDBHandler
	Chunks        *database.ChunksDBHandler
	Entities      *database.EntitiesDBHandler
	Relationships *database.RelationshipsDBHandler
	QueryLogs     *database.QueryLogsDBHandler
	Embeddings    *database.EmbeddingsDBHandler

	Analyzer  analyzer.Analyzer
	Extractor *extraction.BatchExtractor
	Indexer   *vector.Indexer
	Federator *vector.Federator
	Engine    *retrieval.Engine
	Generator generation.Generator
	Mirror    *mirror.Syncer

	ner      analyzer.NERTagger
	embedder *vector.HugotEmbedder
	log      *slog.Logger
}

// NewGraphRAG creates a new GraphRAG instance with all database handlers
// initialized. Call UseDefaultExtraction and UseDefaultVectorSearch to enable
// graph extraction and hybrid retrieval.
func NewGraphRAG(config *helper.DatabaseConfiguration, embeddingDim int) (*GraphRAG, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("graphrag", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (documents first, then chunks)
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	relationships, err := database.NewRelationshipsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relationships handler", err)
	}

	queryLogs, err := database.NewQueryLogsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create query logs handler", err)
	}

	embeddings, err := database.NewEmbeddingsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create embeddings handler", err)
	}

	return &GraphRAG{
		DB:            db,
		Documents:     documents,
		Chunks:        chunks,
		Entities:      entities,
		Relationships: relationships,
		QueryLogs:     queryLogs,
		Embeddings:    embeddings,
		log:           logger,
	}, nil
}

// Close closes the database connection and releases the model sessions.
func (g *GraphRAG) Close() error {
	if g.Extractor != nil {
		g.Extractor.Release()
	}
	if g.embedder != nil {
		if err := g.embedder.Close(); err != nil {
			g.log.Error("closing embedder failed", slog.Any("error", err))
		}
	}
	if closer, ok := g.ner.(interface{ Close() error }); ok && closer != nil {
		if err := closer.Close(); err != nil {
			g.log.Error("closing NER tagger failed", slog.Any("error", err))
		}
	}
	if g.Mirror != nil {
		if err := g.Mirror.Close(context.Background()); err != nil {
			g.log.Error("closing mirror failed", slog.Any("error", err))
		}
	}
	if g.DB != nil && g.DB.Instance != nil {
		return g.DB.Instance.Close()
	}
	return nil
}

// UseDefaultExtraction wires the dependency-parse extraction pipeline: the
// parse sidecar at parserURL (empty uses PARSER_URL), the distilbert NER
// overlay and the built-in financial taxonomy. poolSize < 1 picks a default.
func (g *GraphRAG) UseDefaultExtraction(parserURL string, poolSize int) error {
	g.Analyzer = analyzer.NewHTTPAnalyzer(parserURL)

	ner, err := analyzer.NewHugotNERTagger()
	if err != nil {
		return helper.NewError("create NER tagger", err)
	}
	g.ner = ner

	engine := extraction.NewEngine(g.Analyzer, ner, extraction.DefaultTaxonomy(), g.log)
	persister := extraction.NewPersister(g.DB, g.Entities, g.Relationships, g.log)

	batch, err := extraction.NewBatchExtractor(engine, persister, g.Chunks, poolSize, g.log)
	if err != nil {
		return helper.NewError("create batch extractor", err)
	}
	g.Extractor = batch

	g.buildEngine()
	return nil
}

// UseTaxonomy replaces the extraction taxonomy, e.g. one loaded with
// extraction.LoadTaxonomy. Must be called after UseDefaultExtraction.
func (g *GraphRAG) UseTaxonomy(taxonomy *extraction.Taxonomy, poolSize int) error {
	if g.Analyzer == nil {
		return helper.NewError("set taxonomy", fmt.Errorf("extraction not initialized, use UseDefaultExtraction() first"))
	}

	engine := extraction.NewEngine(g.Analyzer, g.ner, taxonomy, g.log)
	persister := extraction.NewPersister(g.DB, g.Entities, g.Relationships, g.log)

	if g.Extractor != nil {
		g.Extractor.Release()
	}
	batch, err := extraction.NewBatchExtractor(engine, persister, g.Chunks, poolSize, g.log)
	if err != nil {
		return helper.NewError("create batch extractor", err)
	}
	g.Extractor = batch
	return nil
}

// UseDefaultVectorSearch wires per-document vector indexes backed by chromem
// collections and the all-MiniLM-L6-v2 embedder. An empty dbPath keeps the
// indexes in memory.
func (g *GraphRAG) UseDefaultVectorSearch(dbPath string) error {
	embedder, err := vector.NewHugotEmbedder()
	if err != nil {
		return helper.NewError("create embedder", err)
	}
	g.embedder = embedder

	provider, err := vector.NewChromemProvider(dbPath)
	if err != nil {
		return helper.NewError("create vector store", err)
	}

	g.Indexer = vector.NewIndexer(provider, embedder, g.Embeddings, g.Chunks, g.log)
	g.Federator = vector.NewFederator(provider, embedder, g.Embeddings, g.Chunks, g.log)

	g.buildEngine()
	return nil
}

// UseOllamaGenerator enables answer generation through a local Ollama model.
// Empty arguments fall back to OLLAMA_HOST and the mistral model.
func (g *GraphRAG) UseOllamaGenerator(serverURL string, modelName string) error {
	generator, err := generation.NewOllamaGenerator(serverURL, modelName, g.log)
	if err != nil {
		return err
	}
	g.Generator = generator
	return nil
}

// UseNeo4jMirror enables mirroring extracted graphs into Neo4j.
func (g *GraphRAG) UseNeo4jMirror(uri string, username string, password string) error {
	syncer, err := mirror.NewSyncer(uri, username, password, g.Entities, g.Relationships, g.log)
	if err != nil {
		return err
	}
	g.Mirror = syncer
	return nil
}

// buildEngine creates the hybrid retrieval engine once both search paths are
// available.
func (g *GraphRAG) buildEngine() {
	if g.Analyzer == nil || g.Federator == nil {
		return
	}

	graphSearcher := retrieval.NewGraphSearcher(g.Analyzer, g.Entities, g.Relationships, model.DefaultQueryConfig(), g.log)
	g.Engine = retrieval.NewEngine(g.Federator, graphSearcher, g.QueryLogs, g.log)
}

// ExtractDocument runs graph extraction over all chunks of the document.
func (g *GraphRAG) ExtractDocument(ctx context.Context, documentID uuid.UUID) (*model.ExecutionStats, error) {
	if g.Extractor == nil {
		return nil, helper.NewError("extract document", fmt.Errorf("extraction not initialized, use UseDefaultExtraction() first"))
	}
	return g.Extractor.ExtractDocument(ctx, documentID)
}

// IndexDocument embeds all chunks of the document into its vector index.
func (g *GraphRAG) IndexDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	if g.Indexer == nil {
		return 0, helper.NewError("index document", fmt.Errorf("vector search not initialized, use UseDefaultVectorSearch() first"))
	}
	return g.Indexer.IndexDocument(ctx, documentID)
}

// Retrieve performs hybrid retrieval: federated vector search over all
// indexed documents plus the knowledge graph neighborhood of the query
// entities.
func (g *GraphRAG) Retrieve(ctx context.Context, query string, topK int) (*model.RetrievalResult, error) {
	if g.Engine == nil {
		return nil, helper.NewError("retrieve", fmt.Errorf("retrieval engine not initialized, use UseDefaultExtraction() and UseDefaultVectorSearch() first"))
	}
	return g.Engine.Retrieve(ctx, query, topK)
}

// Answer retrieves context for the query and generates an answer. If the
// generator fails the retrieval is still returned with a degraded answer
// text.
func (g *GraphRAG) Answer(ctx context.Context, query string, topK int) (*model.Answer, error) {
	if g.Generator == nil {
		return nil, helper.NewError("answer", fmt.Errorf("generator not initialized, use UseOllamaGenerator() first"))
	}

	result, err := g.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	contextText := generation.FormatContext(result)

	text, err := g.Generator.Generate(ctx, query, contextText)
	if err != nil {
		g.log.Error("answer generation failed", slog.Any("error", err))
		text = generation.DegradedAnswer
	}

	return &model.Answer{
		Query:       query,
		Text:        text,
		ContextUsed: contextText,
		Retrieval:   result,
	}, nil
}

// SyncMirror mirrors the extracted graph of the document into Neo4j.
func (g *GraphRAG) SyncMirror(ctx context.Context, documentID uuid.UUID) error {
	if g.Mirror == nil {
		return helper.NewError("sync mirror", fmt.Errorf("mirror not initialized, use UseNeo4jMirror() first"))
	}
	return g.Mirror.SyncDocument(ctx, documentID)
}

package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relationships.sql
var relationshipsSQL string

//go:embed querylogs.sql
var queryLogsSQL string

//go:embed embeddings.sql
var embeddingsSQL string

// Function lists for verification
var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document",
	"select_all_documents",
	"delete_document",
}

var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"select_chunk",
	"select_chunks_by_document",
	"select_chunks_by_text",
	"delete_chunk",
}

var EntitiesFunctions = []string{
	"init_entities",
	"insert_entity",
	"select_entity",
	"select_entities_by_search",
	"select_entities_by_ids",
	"select_entities_by_document",
	"delete_entity",
}

var RelationshipsFunctions = []string{
	"init_relationships",
	"insert_relationship",
	"select_relationship",
	"select_relationships_touching",
	"select_relationships_by_document",
	"delete_relationship",
}

var QueryLogsFunctions = []string{
	"init_query_logs",
	"insert_query_log",
	"select_recent_query_logs",
}

var EmbeddingsFunctions = []string{
	"init_embeddings",
	"insert_embedding",
	"select_embedding_by_position",
	"select_documents_with_embeddings",
	"select_embeddings_by_document",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadDocumentsSql loads document-related SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, "documents", documentsSQL, DocumentsFunctions)
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadSql(db, force, "chunks", chunksSQL, ChunksFunctions)
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSql(db, force, "entities", entitiesSQL, EntitiesFunctions)
}

// LoadRelationshipsSql loads relationship-related SQL functions
func LoadRelationshipsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, "relationships", relationshipsSQL, RelationshipsFunctions)
}

// LoadQueryLogsSql loads query-log-related SQL functions
func LoadQueryLogsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, "query logs", queryLogsSQL, QueryLogsFunctions)
}

// LoadEmbeddingsSql loads embedding-mapping SQL functions
func LoadEmbeddingsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, "embeddings", embeddingsSQL, EmbeddingsFunctions)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadDocumentsSql(db, force); err != nil {
		return err
	}

	if err := LoadChunksSql(db, force); err != nil {
		return err
	}

	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadRelationshipsSql(db, force); err != nil {
		return err
	}

	if err := LoadQueryLogsSql(db, force); err != nil {
		return err
	}

	return LoadEmbeddingsSql(db, force)
}

// loadSql executes one SQL file unless all its functions already exist,
// then verifies that every declared function was created
func loadSql(db *sql.DB, force bool, name string, sqlText string, functions []string) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(sqlText)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}

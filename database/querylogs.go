package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// QueryLogsDBHandlerFunctions defines the interface for QueryLogs database operations.
type QueryLogsDBHandlerFunctions interface {
	InsertQueryLog(queryLog *model.QueryLog) error
	SelectRecentQueryLogs(limit int) ([]*model.QueryLog, error)
}

// QueryLogsDBHandler handles query-log-related database operations
type QueryLogsDBHandler struct {
	db *helper.Database
}

// NewQueryLogsDBHandler creates a new query logs database handler.
// It initializes the database connection and loads query-log-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewQueryLogsDBHandler(db *helper.Database, force bool) (*QueryLogsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	queryLogsDbHandler := &QueryLogsDBHandler{
		db: db,
	}

	err := loadSql.LoadQueryLogsSql(queryLogsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load query logs sql", err)
	}

	err = queryLogsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized QueryLogsDBHandler")

	return queryLogsDbHandler, nil
}

// CreateTable creates the 'query_logs' table in the database.
// If the table already exists, it does not create it again.
func (h *QueryLogsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_query_logs();`)
	if err != nil {
		log.Panicf("error initializing query_logs table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table query_logs")

	return nil
}

// InsertQueryLog inserts a new query log row. Callers treat failures as
// non-fatal; the retrieval response must not depend on this write.
func (h *QueryLogsDBHandler) InsertQueryLog(queryLog *model.QueryLog) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_query_log($1, $2, $3, $4, $5)`,
		queryLog.QueryText,
		queryLog.QueryType,
		pq.Array(queryLog.RetrievedChunkIDs),
		queryLog.RetrievedGraph,
		queryLog.ExecutionTimeMs,
	)

	err := row.Scan(
		&queryLog.ID,
		&queryLog.QueryText,
		&queryLog.QueryType,
		pq.Array(&queryLog.RetrievedChunkIDs),
		&queryLog.RetrievedGraph,
		&queryLog.ExecutionTimeMs,
		&queryLog.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRecentQueryLogs selects the most recent query logs
func (h *QueryLogsDBHandler) SelectRecentQueryLogs(limit int) ([]*model.QueryLog, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_recent_query_logs($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var queryLogs []*model.QueryLog
	for rows.Next() {
		queryLog := &model.QueryLog{}
		err := rows.Scan(
			&queryLog.ID,
			&queryLog.QueryText,
			&queryLog.QueryType,
			pq.Array(&queryLog.RetrievedChunkIDs),
			&queryLog.RetrievedGraph,
			&queryLog.ExecutionTimeMs,
			&queryLog.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		queryLogs = append(queryLogs, queryLog)
	}

	return queryLogs, rows.Err()
}

package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/Julian1897/smart-data-qa/internal/model/dataset"
	"github.com/Julian1897/smart-data-qa/internal/model/qa"
)

// TableName 是每个会话数据落库后的表名。
const TableName = "data_table"

// ExecutionError reports a generated query the engine could not run. It is
// surfaced to the user as a readable failure and never retried.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %q: %v", e.Query, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Result carries rows from an executed query with column order preserved.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Store runs generated queries against per-session in-memory SQLite
// databases. Loaded data is read-only for the session's lifetime: the prefix
// guard filters obvious writes and the connection's query_only pragma rejects
// anything that slips past it.
type Store struct {
	mu  sync.RWMutex
	dbs map[string]*sql.DB
}

// NewStore bootstraps an empty engine store.
func NewStore() *Store {
	return &Store{dbs: make(map[string]*sql.DB)}
}

// Load materializes the table into a fresh in-memory database for the
// session. A single connection pins the ephemeral database for its lifetime.
func (s *Store) Load(ctx context.Context, sessionID string, table *dataset.Table) error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("open session database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createTable(ctx, db, table); err != nil {
		db.Close()
		return err
	}
	if err := insertRows(ctx, db, table); err != nil {
		db.Close()
		return err
	}
	// 数据装载完成后连接进入只读模式，写语句（包括 WITH ... INSERT
	// 这类复合形式）一律在执行层被拒绝。
	if _, err := db.ExecContext(ctx, "PRAGMA query_only=ON"); err != nil {
		db.Close()
		return fmt.Errorf("set query_only: %w", err)
	}

	s.mu.Lock()
	if old, ok := s.dbs[sessionID]; ok {
		old.Close()
	}
	s.dbs[sessionID] = db
	s.mu.Unlock()
	return nil
}

// Execute runs a generated query for the session. Only read statements are
// accepted; every failure comes back as *ExecutionError.
func (s *Store) Execute(ctx context.Context, sessionID, query string) (*Result, error) {
	s.mu.RLock()
	db, ok := s.dbs[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, qa.ErrSessionNotFound
	}

	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, &ExecutionError{Query: query, Err: fmt.Errorf("only SELECT statements are allowed")}
	}

	rows, err := db.QueryContext(ctx, trimmed)
	if err != nil {
		return nil, &ExecutionError{Query: query, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &ExecutionError{Query: query, Err: err}
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, &ExecutionError{Query: query, Err: err}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Query: query, Err: err}
	}
	return result, nil
}

// Drop closes and removes the session's database.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[sessionID]; ok {
		db.Close()
		delete(s.dbs, sessionID)
	}
}

func createTable(ctx context.Context, db *sql.DB, table *dataset.Table) error {
	defs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		affinity := "TEXT"
		if col.Type == dataset.Number {
			affinity = "REAL"
		}
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(col.Name), affinity)
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", TableName, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, db *sql.DB, table *dataset.Table) error {
	if len(table.Rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(table.Columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", TableName, placeholders))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range table.Rows {
		args := make([]any, len(table.Columns))
		for i, col := range table.Columns {
			args[i] = cellValue(row[i], col.Type)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// cellValue keeps numeric columns numeric so aggregates behave; empty cells
// become NULL.
func cellValue(cell string, typ dataset.ColumnType) any {
	if cell == "" {
		return nil
	}
	if typ == dataset.Number {
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return f
		}
	}
	return cell
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

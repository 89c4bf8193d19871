// Package sqlite implements the embedded engine backend using database/sql
// over modernc.org/sqlite. SQLite has shipped window functions (including
// DENSE_RANK) since 3.25, which covers every query the pipeline declares, so
// a single process can run the whole analysis without external services. It
// is also the engine the test suite runs against.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver; pure Go, no cgo required.
	_ "modernc.org/sqlite"

	"retailetl/internal/engine"
	"retailetl/internal/schema"
)

// Session is a SQLite-backed implementation of engine.Session.
type Session struct {
	db *sql.DB
}

// New opens a SQLite session for the given DSN. An empty DSN falls back to a
// private in-memory database, which is what the tests use.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:retail.db?cache=shared"
//	"retail.db"
func New(ctx context.Context, dsn string) (*Session, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:retail?mode=memory&cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Pin the pool to one connection. In-memory databases are per-connection,
	// and with a file DSN concurrent writers on separate connections hit
	// SQLITE_BUSY; the pipeline runs over a single session either way.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	return &Session{db: db}, nil
}

// Exec implements engine.Session.
func (s *Session) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Query implements engine.Session.
func (s *Session) Query(ctx context.Context, query string, args ...any) (engine.Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	return rows, nil
}

// CopyFrom inserts the given rows into table using a single transaction and a
// prepared INSERT statement. SQLite has no dedicated bulk-load API like
// Postgres COPY, but transactions keep performance acceptable for the volumes
// this pipeline stages.
func (s *Session) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = engine.QuoteIdent(c)
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		engine.QuoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("sqlite: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("sqlite: insert into %s: %w", table, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// CreateTable drops and recreates the table from the definition.
func (s *Session) CreateTable(ctx context.Context, def schema.TableDef) error {
	if def.Name == "" {
		return fmt.Errorf("sqlite: CreateTable: table name must not be empty")
	}
	if len(def.Columns) == 0 {
		return fmt.Errorf("sqlite: CreateTable: table %s has no columns", def.Name)
	}

	if err := s.Exec(ctx, "DROP TABLE IF EXISTS "+engine.QuoteIdent(def.Name)); err != nil {
		return err
	}

	cols := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		cols[i] = engine.QuoteIdent(c.Name) + " " + sqlType(c.Type)
	}
	create := fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n)",
		engine.QuoteIdent(def.Name),
		strings.Join(cols, ",\n  "),
	)
	return s.Exec(ctx, create)
}

// Close implements engine.Session.
func (s *Session) Close() error {
	return s.db.Close()
}

// sqlType maps the engine-agnostic column types to SQLite type names, which
// drive column affinity.
func sqlType(t schema.ColType) string {
	switch t {
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeReal:
		return "REAL"
	case schema.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func init() {
	engine.Register("sqlite", func(ctx context.Context, cfg engine.Config) (engine.Session, error) {
		return New(ctx, cfg.DSN)
	})
}

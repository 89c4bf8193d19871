// Package postgres implements the external engine backend using pgx v5. It
// exists for deployments where the staged dataset should live in a shared
// Postgres instance instead of an embedded database; the declared SQL is
// identical apart from DDL type names, and bulk loading uses the native COPY
// protocol.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"retailetl/internal/engine"
	"retailetl/internal/schema"
)

// Session is a Postgres-backed implementation of engine.Session.
type Session struct {
	pool *pgxpool.Pool
}

// New opens a connection pool for the given DSN and verifies it with a ping.
func New(ctx context.Context, dsn string) (*Session, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Session{pool: pool}, nil
}

// Exec implements engine.Session.
func (s *Session) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

// Query implements engine.Session.
func (s *Session) Query(ctx context.Context, query string, args ...any) (engine.Rows, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	return &pgxRows{rows: rows}, nil
}

// CopyFrom bulk-loads rows via the COPY protocol.
func (s *Session) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("postgres: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("postgres: copy into %s: %w", table, err)
	}
	return n, nil
}

// CreateTable drops and recreates the table from the definition.
func (s *Session) CreateTable(ctx context.Context, def schema.TableDef) error {
	if def.Name == "" {
		return fmt.Errorf("postgres: CreateTable: table name must not be empty")
	}
	if len(def.Columns) == 0 {
		return fmt.Errorf("postgres: CreateTable: table %s has no columns", def.Name)
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
	s.pool.Close()
	return nil
}

// pgxRows adapts pgx.Rows to engine.Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Columns() ([]string, error) {
	fds := r.rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return cols, nil
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Err() error             { return r.rows.Err() }
func (r *pgxRows) Close() error           { r.rows.Close(); return nil }

// sqlType maps the engine-agnostic column types to Postgres type names.
func sqlType(t schema.ColType) string {
	switch t {
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeReal:
		return "DOUBLE PRECISION"
	case schema.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func init() {
	engine.Register("postgres", func(ctx context.Context, cfg engine.Config) (engine.Session, error) {
		return New(ctx, cfg.DSN)
	})
}

// Package engine abstracts the SQL query engine the pipeline delegates its
// declarative transformations to. The program authors joins, aggregations,
// and window queries as SQL text; everything about their evaluation (planning,
// parallelism, spilling) belongs to the engine behind this interface.
//
// Backends register themselves with the factory at init time; callers import
// retailetl/internal/engine/all (usually as a blank import in the wiring
// layer) to make every built-in backend available, then open a Session via
// New. The rest of the application depends only on this package.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"retailetl/internal/schema"
)

// Rows is the minimal result-set cursor shared by all backends. It mirrors
// database/sql.Rows closely; the postgres backend adapts pgx.Rows to it.
type Rows interface {
	// Columns returns the result column names in projection order.
	Columns() ([]string, error)
	// Next advances to the next row, returning false at the end or on error.
	Next() bool
	// Scan copies the current row into dest, one target per column.
	Scan(dest ...any) error
	// Err returns the error, if any, that terminated iteration.
	Err() error
	// Close releases the cursor.
	Close() error
}

// Session is a live engine connection scoped to one pipeline run. It is
// acquired once at pipeline start and released in a guaranteed-cleanup block
// at the end; no component opens its own connection.
type Session interface {
	// Exec runs a statement (DDL or DML) and discards any result.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query runs a statement and returns its result cursor.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// CopyFrom bulk-loads rows into table using the backend's most efficient
	// primitive (COPY for postgres, a single-transaction prepared INSERT for
	// sqlite). Each row must align with columns.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// CreateTable drops any previous incarnation of the table and creates it
	// fresh from the definition. Staging tables are rebuilt every run; no
	// state persists between executions.
	CreateTable(ctx context.Context, def schema.TableDef) error

	// Close releases the session. Safe to call once.
	Close() error
}

// Config carries the backend selection and connection string.
type Config struct {
	// Kind selects the registered backend ("sqlite", "postgres").
	Kind string
	// DSN is the backend connection string.
	DSN string
}

// Factory constructs a Session for a backend kind.
type Factory func(ctx context.Context, cfg Config) (Session, error)

var (
	facMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for a backend kind. It is
// typically called from backend packages' init functions.
func Register(kind string, f Factory) {
	facMu.Lock()
	defer facMu.Unlock()
	factories[kind] = f
}

// New opens a Session for cfg.Kind. It fails when no backend with that kind
// has been registered (usually a missing blank import of engine/all).
func New(ctx context.Context, cfg Config) (Session, error) {
	facMu.RLock()
	f, ok := factories[cfg.Kind]
	facMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: no backend registered for kind %q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// QuoteIdent double-quotes an identifier, escaping embedded quotes. Both
// supported backends accept this quoting form.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableColumns reports the column names of an existing table, in table order,
// by running a zero-row projection against it.
func TableColumns(ctx context.Context, s Session, table string) ([]string, error) {
	rows, err := s.Query(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1=0", QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("engine: describe %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("engine: columns of %s: %w", table, err)
	}
	// Drain so Err is meaningful, then surface any cursor error.
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

// CountRows returns SELECT COUNT(*) for the table.
func CountRows(ctx context.Context, s Session, table string) (int64, error) {
	rows, err := s.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", QuoteIdent(table)))
	if err != nil {
		return 0, fmt.Errorf("engine: count %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("engine: count %s: empty result", table)
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return n, rows.Err()
}

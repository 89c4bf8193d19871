// Package catalog maintains a small SQLite metastore that registers the
// published dataset: table name, column contract, dataset location, and the
// stats of the latest run. Registration is idempotent; re-registering with
// the same schema refreshes the stats, while a changed schema is an error
// the caller treats as fatal, since silently re-pointing consumers at a
// different shape is worse than stopping.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"retailetl/internal/schema"
)

// ErrSchemaMismatch is returned when a table is already registered with a
// different column contract.
var ErrSchemaMismatch = errors.New("catalog: registered schema differs")

// Entry is one registration of a dataset.
type Entry struct {
	Table       string
	Columns     string // canonical "name type, name type" form
	Location    string
	RowCount    int64
	Fingerprint string
	RunID       string
	UpdatedAt   time.Time
}

// Catalog is an open metastore handle.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the metastore at path.
func Open(ctx context.Context, path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	const ddl = `CREATE TABLE IF NOT EXISTS tables (
		name        TEXT PRIMARY KEY,
		columns     TEXT NOT NULL,
		location    TEXT NOT NULL,
		row_count   INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		run_id      TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: init %s: %w", path, err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the metastore handle.
func (c *Catalog) Close() error { return c.db.Close() }

// ColumnsSpec renders the canonical column contract for a table definition.
func ColumnsSpec(cols []schema.ColumnDef) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = col.Name + " " + string(col.Type)
	}
	return strings.Join(parts, ", ")
}

// EnsureTable registers e.Table, creating the entry when absent and
// refreshing its stats when present with an identical column contract.
// A differing contract returns ErrSchemaMismatch.
func (c *Catalog) EnsureTable(ctx context.Context, e Entry) error {
	var existing string
	err := c.db.QueryRowContext(ctx,
		`SELECT columns FROM tables WHERE name = ?`, e.Table).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = c.db.ExecContext(ctx,
			`INSERT INTO tables (name, columns, location, row_count, fingerprint, run_id, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.Table, e.Columns, e.Location, e.RowCount, e.Fingerprint, e.RunID,
			e.UpdatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("catalog: register %s: %w", e.Table, err)
		}
		log.Printf("catalog: registered %s at %s", e.Table, e.Location)
		return nil

	case err != nil:
		return fmt.Errorf("catalog: lookup %s: %w", e.Table, err)
	}

	if existing != e.Columns {
		return fmt.Errorf("%w: table %s has %q, run produced %q",
			ErrSchemaMismatch, e.Table, existing, e.Columns)
	}

	_, err = c.db.ExecContext(ctx,
		`UPDATE tables SET location = ?, row_count = ?, fingerprint = ?, run_id = ?, updated_at = ?
		 WHERE name = ?`,
		e.Location, e.RowCount, e.Fingerprint, e.RunID,
		e.UpdatedAt.UTC().Format(time.RFC3339), e.Table)
	if err != nil {
		return fmt.Errorf("catalog: refresh %s: %w", e.Table, err)
	}
	log.Printf("catalog: refreshed %s rows=%d fingerprint=%s", e.Table, e.RowCount, e.Fingerprint)
	return nil
}

// Lookup returns the registered entry for a table.
func (c *Catalog) Lookup(ctx context.Context, table string) (Entry, error) {
	var (
		e  Entry
		ts string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT name, columns, location, row_count, fingerprint, run_id, updated_at
		 FROM tables WHERE name = ?`, table).
		Scan(&e.Table, &e.Columns, &e.Location, &e.RowCount, &e.Fingerprint, &e.RunID, &ts)
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: lookup %s: %w", table, err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339, ts); err != nil {
		return Entry{}, fmt.Errorf("catalog: lookup %s: bad timestamp %q: %w", table, ts, err)
	}
	return e, nil
}

// Package profile computes staging-table statistics before cleaning runs:
// a row count for every staged table, plus per-column null counts for the
// tables whose downstream handling depends on missing values.
package profile

import (
	"context"
	"fmt"
	"log"
	"strings"

	"retailetl/internal/engine"
	"retailetl/internal/schema"
)

// NullCount is the number of NULL values observed in one column.
type NullCount struct {
	Column string
	Nulls  int64
}

// TableProfile summarizes one staged table.
type TableProfile struct {
	Table string
	Rows  int64
	// Nulls is populated only for tables listed in schema.NullProfiled,
	// in column order.
	Nulls []NullCount
}

// Collect profiles every table in defs, in schema.Sources order. Tables
// absent from defs are skipped.
func Collect(ctx context.Context, sess engine.Session, defs map[string]schema.TableDef) ([]TableProfile, error) {
	nullWanted := make(map[string]bool, len(schema.NullProfiled))
	for _, name := range schema.NullProfiled {
		nullWanted[name] = true
	}

	profiles := make([]TableProfile, 0, len(defs))
	for _, src := range schema.Sources {
		def, ok := defs[src.Name]
		if !ok {
			continue
		}

		p := TableProfile{Table: src.Name}
		rows, err := engine.CountRows(ctx, sess, src.Name)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", src.Name, err)
		}
		p.Rows = rows

		if nullWanted[src.Name] {
			p.Nulls, err = nullCounts(ctx, sess, def)
			if err != nil {
				return nil, fmt.Errorf("profile %s: %w", src.Name, err)
			}
		}

		log.Printf("profile: %s rows=%d", src.Name, p.Rows)
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// nullCounts counts NULLs for every column of def in a single scan.
func nullCounts(ctx context.Context, sess engine.Session, def schema.TableDef) ([]NullCount, error) {
	if len(def.Columns) == 0 {
		return nil, nil
	}

	exprs := make([]string, len(def.Columns))
	for i, col := range def.Columns {
		exprs[i] = fmt.Sprintf("COALESCE(SUM(CASE WHEN %s IS NULL THEN 1 ELSE 0 END), 0)",
			engine.QuoteIdent(col.Name))
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), engine.QuoteIdent(def.Name))

	rows, err := sess.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("null count query returned no rows")
	}

	counts := make([]int64, len(def.Columns))
	dests := make([]any, len(counts))
	for i := range counts {
		dests[i] = &counts[i]
	}
	if err := rows.Scan(dests...); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]NullCount, len(def.Columns))
	for i, col := range def.Columns {
		out[i] = NullCount{Column: col.Name, Nulls: counts[i]}
	}
	return out, nil
}

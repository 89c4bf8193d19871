// Package loader stages the seven delimited source files into engine tables.
//
// For each source it reads the header, samples leading rows for type
// inference, recreates the staging table, and streams the full file through
// type coercion into batched bulk loads. The seven files load concurrently
// (bootstrap parallelism only; every declared query downstream runs
// sequentially against the staged tables).
//
// Input errors are fatal: a missing or malformed source file aborts the run
// before any aggregate executes.
package loader

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"retailetl/internal/config"
	"retailetl/internal/engine"
	csvparser "retailetl/internal/parser/csv"
	"retailetl/internal/schema"
	"retailetl/pkg/records"
)

// TableStats summarizes one staged table.
type TableStats struct {
	// Rows is the number of data rows loaded.
	Rows int64
	// Def is the inferred table definition.
	Def schema.TableDef
}

// Loader stages the configured sources into an engine session.
type Loader struct {
	sess engine.Session
	spec config.Pipeline
}

// New returns a Loader bound to the session and pipeline config.
func New(sess engine.Session, spec config.Pipeline) *Loader {
	return &Loader{sess: sess, spec: spec}
}

// openSource is a test seam; production opens local files under base_path.
var openSource = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Run loads every source table and returns per-table stats keyed by table
// name. The first failure cancels the remaining loads.
func (l *Loader) Run(ctx context.Context) (map[string]TableStats, error) {
	var (
		mu    sync.Mutex
		stats = make(map[string]TableStats, len(schema.Sources))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range schema.Sources {
		src := src
		g.Go(func() error {
			st, err := l.loadOne(ctx, src)
			if err != nil {
				return fmt.Errorf("load %s: %w", src.Name, err)
			}
			mu.Lock()
			stats[src.Name] = st
			mu.Unlock()
			log.Printf("loader: %s staged rows=%d cols=%d", src.Name, st.Rows, len(st.Def.Columns))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// loadOne stages a single source file end to end.
func (l *Loader) loadOne(ctx context.Context, src schema.SourceTable) (TableStats, error) {
	path := filepath.Join(l.spec.Source.BasePath, src.File)
	rc, err := openSource(path)
	if err != nil {
		return TableStats{}, fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	opt := csvparser.Options{TrimSpace: true}
	if l.spec.Source.Comma != "" {
		opt.Comma = []rune(l.spec.Source.Comma)[0]
	}
	stream, err := csvparser.NewStream(rc, opt)
	if err != nil {
		return TableStats{}, err
	}

	// Sample leading rows for type inference. The sampled rows are replayed
	// into the load afterwards; nothing is read twice from disk.
	sample := make([]records.Record, 0, l.spec.Runtime.SampleRows)
	for len(sample) < l.spec.Runtime.SampleRows {
		rec, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return TableStats{}, err
		}
		sample = append(sample, rec)
	}

	def := schema.InferTableDef(src.Name, stream.Columns(), sample)
	if err := l.sess.CreateTable(ctx, def); err != nil {
		return TableStats{}, err
	}

	columns := def.ColumnNames()
	out := make(chan []any, l.spec.Runtime.ChannelBuffer)

	g, ctx := errgroup.WithContext(ctx)

	// Producer: replay the sample, then drain the stream, coercing values to
	// the inferred column types on the way.
	g.Go(func() error {
		defer close(out)

		send := func(rec records.Record) error {
			row := schema.CoerceRecord(rec, def).Row(columns)
			select {
			case out <- row:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for _, rec := range sample {
			if err := send(rec); err != nil {
				return err
			}
		}
		for {
			rec, err := stream.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := send(rec); err != nil {
				return err
			}
		}
	})

	// Consumer: batched bulk loads.
	var total int64
	g.Go(func() error {
		n, err := LoadBatches(ctx, src.Name, columns, out, l.spec.Runtime.BatchSize,
			func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
				return l.sess.CopyFrom(ctx, src.Name, cols, rows)
			})
		total = n
		return err
	})

	if err := g.Wait(); err != nil {
		return TableStats{}, err
	}
	return TableStats{Rows: total, Def: def}, nil
}

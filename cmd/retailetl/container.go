// This file wires the batch pipeline end to end: stage the sources, profile,
// clean, build the fact table, report, publish the parquet dataset, register
// it in the catalog, and validate the published data by reading it back. The
// CLI layer stays thin and depends only on the engine abstraction; backend
// drivers are pulled in through the blank import in main.go.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"retailetl/internal/catalog"
	"retailetl/internal/clean"
	"retailetl/internal/config"
	"retailetl/internal/engine"
	"retailetl/internal/fact"
	"retailetl/internal/loader"
	"retailetl/internal/metrics"
	"retailetl/internal/profile"
	"retailetl/internal/report"
	"retailetl/internal/schema"
	"retailetl/internal/sink"
)

// DatasetDirName is the fact dataset directory under output.path.
const DatasetDirName = "fact_orders"

// errValidationFailed marks a run whose dataset was published but failed the
// read-back validation. main maps it to a distinct exit code so schedulers
// can tell "nothing written" from "written but suspect".
var errValidationFailed = errors.New("post-publish validation failed")

// Function variables used to introduce test seams.
var (
	newSessionFn = engine.New

	openCatalogFn = catalog.Open
)

// run executes the whole pipeline against the configured engine. Report and
// profile output goes to w.
func run(ctx context.Context, p config.Pipeline, w io.Writer) error {
	runID := uuid.NewString()
	job := p.Job
	if job == "" {
		job = "retailetl"
	}
	log.Printf("run %s: engine=%s base=%s output=%s", runID, p.Engine.Kind, p.Source.BasePath, p.Output.Path)

	sess, err := newSessionFn(ctx, engine.Config{Kind: p.Engine.Kind, DSN: p.Engine.DSN})
	if err != nil {
		return fmt.Errorf("open engine session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("run %s: close session: %v", runID, err)
		}
	}()

	stage := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		d := time.Since(start)
		metrics.RecordStage(job, name, err, d)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		log.Printf("run %s: %s done in %s", runID, name, d.Truncate(time.Millisecond))
		return nil
	}

	var stats map[string]loader.TableStats
	if err := stage("load", func() error {
		var err error
		stats, err = loader.New(sess, p).Run(ctx)
		return err
	}); err != nil {
		return err
	}
	var staged int64
	defs := make(map[string]schema.TableDef, len(stats))
	for name, st := range stats {
		staged += st.Rows
		defs[name] = st.Def
	}
	metrics.RecordRows(job, "staged", staged)

	if err := stage("profile", func() error {
		profiles, err := profile.Collect(ctx, sess, defs)
		if err != nil {
			return err
		}
		profile.Render(w, profiles)
		return nil
	}); err != nil {
		return err
	}

	if err := stage("clean", func() error {
		_, err := clean.Run(ctx, sess)
		return err
	}); err != nil {
		return err
	}

	var factRows int64
	if err := stage("fact", func() error {
		var err error
		factRows, _, err = fact.Build(ctx, sess)
		return err
	}); err != nil {
		return err
	}
	metrics.RecordRows(job, "fact", factRows)

	if err := stage("report", func() error {
		rep, err := report.Collect(ctx, sess, p.Report)
		if err != nil {
			return err
		}
		report.Render(w, rep, p.Report)
		return nil
	}); err != nil {
		return err
	}

	datasetDir := filepath.Join(p.Output.Path, DatasetDirName)
	var written sink.Result
	if err := stage("sink", func() error {
		var err error
		written, err = sink.Write(ctx, sess, datasetDir, p.Runtime.BatchSize)
		return err
	}); err != nil {
		return err
	}
	metrics.RecordRows(job, "written", written.Rows)

	var registered catalog.Entry
	if err := stage("catalog", func() error {
		cat, err := openCatalogFn(ctx, p.Catalog.Path)
		if err != nil {
			return err
		}
		defer cat.Close()
		if err := cat.EnsureTable(ctx, catalog.Entry{
			Table:       p.Catalog.Table,
			Columns:     catalog.ColumnsSpec(schema.FactColumns),
			Location:    written.Path,
			RowCount:    written.Rows,
			Fingerprint: written.Fingerprint,
			RunID:       runID,
			UpdatedAt:   time.Now(),
		}); err != nil {
			return err
		}
		registered, err = cat.Lookup(ctx, p.Catalog.Table)
		return err
	}); err != nil {
		return err
	}

	// The dataset and catalog entry are already published; a failure from
	// here on is a validation failure, not a pipeline failure. Reading the
	// location back from the catalog entry exercises the binding consumers
	// will follow.
	start := time.Now()
	categories, err := catalog.Validate(registered.Location)
	metrics.RecordStage(job, "validate", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: %v", errValidationFailed, err)
	}
	fmt.Fprintln(w, "revenue by category:")
	for _, cr := range categories {
		fmt.Fprintf(w, "  %-40s %12.2f\n", cr.Category, cr.Revenue)
	}

	log.Printf("run %s: published %s rows=%d fingerprint=%s",
		runID, written.Path, written.Rows, written.Fingerprint)
	return nil
}

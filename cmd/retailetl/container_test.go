package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"retailetl/internal/catalog"
	"retailetl/internal/config"
	"retailetl/internal/schema"
	"retailetl/internal/sink"
	"retailetl/internal/testfix"
)

func e2ePipeline(t *testing.T) config.Pipeline {
	t.Helper()
	srcDir := t.TempDir()
	testfix.WriteCSVs(t, srcDir)

	var p config.Pipeline
	p.Job = "retail_test"
	p.Source.BasePath = srcDir
	p.Engine.Kind = "sqlite"
	p.Engine.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	p.Output.Path = t.TempDir()
	p.Catalog.Path = filepath.Join(t.TempDir(), "catalog.db")
	config.ApplyDefaults(&p)
	return p
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	p := e2ePipeline(t)

	var out bytes.Buffer
	if err := run(ctx, p, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	datasetDir := filepath.Join(p.Output.Path, DatasetDirName)
	rows, err := sink.ReadAll(datasetDir)
	if err != nil {
		t.Fatalf("read published dataset: %v", err)
	}
	if int64(len(rows)) != testfix.FactRows {
		t.Errorf("published %d rows, want %d", len(rows), testfix.FactRows)
	}

	cat, err := catalog.Open(ctx, p.Catalog.Path)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer cat.Close()
	entry, err := cat.Lookup(ctx, p.Catalog.Table)
	if err != nil {
		t.Fatalf("catalog lookup: %v", err)
	}
	if entry.RowCount != testfix.FactRows {
		t.Errorf("catalog row count = %d, want %d", entry.RowCount, testfix.FactRows)
	}
	if entry.Location != datasetDir {
		t.Errorf("catalog location = %s, want %s", entry.Location, datasetDir)
	}
	if entry.RunID == "" || entry.Fingerprint == "" {
		t.Errorf("catalog entry missing run id or fingerprint: %+v", entry)
	}

	text := out.String()
	for _, want := range []string{"revenue by category:", "unknown", "perfumaria", "esporte_lazer"} {
		if !strings.Contains(text, want) {
			t.Errorf("run output missing %q", want)
		}
	}
}

// A rerun over the same inputs republishes an identical dataset and refreshes
// the existing catalog entry instead of rejecting it.
func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := e2ePipeline(t)

	var out bytes.Buffer
	if err := run(ctx, p, &out); err != nil {
		t.Fatalf("first run: %v", err)
	}
	cat, err := catalog.Open(ctx, p.Catalog.Path)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	first, err := cat.Lookup(ctx, p.Catalog.Table)
	cat.Close()
	if err != nil {
		t.Fatalf("lookup after first run: %v", err)
	}

	if err := run(ctx, p, &out); err != nil {
		t.Fatalf("second run: %v", err)
	}
	cat, err = catalog.Open(ctx, p.Catalog.Path)
	if err != nil {
		t.Fatalf("reopen catalog: %v", err)
	}
	defer cat.Close()
	second, err := cat.Lookup(ctx, p.Catalog.Table)
	if err != nil {
		t.Fatalf("lookup after second run: %v", err)
	}

	if first.Fingerprint != second.Fingerprint {
		t.Errorf("fingerprint changed across reruns: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
	if first.RunID == second.RunID {
		t.Error("run id did not change across reruns")
	}
}

// Validation reads the dataset through the catalog entry, so a run over a
// catalog holding a stale location must refresh the binding and validate the
// freshly registered directory.
func TestValidateFollowsRegisteredLocation(t *testing.T) {
	ctx := context.Background()
	p := e2ePipeline(t)

	stale := catalog.Entry{
		Table:       p.Catalog.Table,
		Columns:     catalog.ColumnsSpec(schema.FactColumns),
		Location:    filepath.Join(t.TempDir(), "gone"),
		RowCount:    99,
		Fingerprint: "stale",
		RunID:       "previous",
		UpdatedAt:   time.Now(),
	}
	cat, err := catalog.Open(ctx, p.Catalog.Path)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	if err := cat.EnsureTable(ctx, stale); err != nil {
		cat.Close()
		t.Fatalf("seed stale entry: %v", err)
	}
	cat.Close()

	var out bytes.Buffer
	if err := run(ctx, p, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	cat, err = catalog.Open(ctx, p.Catalog.Path)
	if err != nil {
		t.Fatalf("reopen catalog: %v", err)
	}
	defer cat.Close()
	entry, err := cat.Lookup(ctx, p.Catalog.Table)
	if err != nil {
		t.Fatalf("catalog lookup: %v", err)
	}
	want := filepath.Join(p.Output.Path, DatasetDirName)
	if entry.Location != want {
		t.Errorf("registered location = %s, want %s", entry.Location, want)
	}
	if !strings.Contains(out.String(), "revenue by category:") {
		t.Error("run output missing the validation aggregate")
	}
}

func TestRunFailsWithoutSources(t *testing.T) {
	ctx := context.Background()
	p := e2ePipeline(t)
	p.Source.BasePath = t.TempDir() // empty

	if err := run(ctx, p, &bytes.Buffer{}); err == nil {
		t.Fatal("run succeeded with no input files")
	}
}

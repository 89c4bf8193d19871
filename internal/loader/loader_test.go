package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"retailetl/internal/config"
	"retailetl/internal/engine"
	_ "retailetl/internal/engine/sqlite"
	"retailetl/internal/schema"
	"retailetl/internal/testfix"
)

func newSession(t *testing.T) engine.Session {
	t.Helper()
	sess, err := engine.New(context.Background(), engine.Config{
		Kind: "sqlite",
		DSN:  fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func testSpec(base string) config.Pipeline {
	spec := config.Pipeline{}
	spec.Source.BasePath = base
	config.ApplyDefaults(&spec)
	return spec
}

func TestRunStagesAllSources(t *testing.T) {
	dir := t.TempDir()
	testfix.WriteCSVs(t, dir)
	sess := newSession(t)
	ctx := context.Background()

	stats, err := New(sess, testSpec(dir)).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stats) != len(schema.Sources) {
		t.Fatalf("staged %d tables, want %d", len(stats), len(schema.Sources))
	}

	want := map[string]int64{
		"customers":   3,
		"orders":      5,
		"order_items": 6,
		"payments":    4,
		"products":    3,
		"sellers":     2,
		"reviews":     3,
	}
	for table, rows := range want {
		st, ok := stats[table]
		if !ok {
			t.Errorf("missing stats for %s", table)
			continue
		}
		if st.Rows != rows {
			t.Errorf("%s: loaded %d rows, want %d", table, st.Rows, rows)
		}
		n, err := engine.CountRows(ctx, sess, table)
		if err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != rows {
			t.Errorf("%s: table holds %d rows, want %d", table, n, rows)
		}
	}
}

func TestRunInfersNumericTypes(t *testing.T) {
	dir := t.TempDir()
	testfix.WriteCSVs(t, dir)
	sess := newSession(t)

	stats, err := New(sess, testSpec(dir)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	items := stats["order_items"].Def
	cases := map[string]schema.ColType{
		"order_id":      schema.TypeText,
		"order_item_id": schema.TypeInteger,
		"price":         schema.TypeReal,
		"freight_value": schema.TypeReal,
	}
	for col, want := range cases {
		def, ok := items.Column(col)
		if !ok {
			t.Fatalf("order_items: column %s not inferred", col)
		}
		if def.Type != want {
			t.Errorf("order_items.%s: inferred %s, want %s", col, def.Type, want)
		}
	}
}

func TestRunMissingSourceFileFatal(t *testing.T) {
	dir := t.TempDir()
	sess := newSession(t)

	if _, err := New(sess, testSpec(dir)).Run(context.Background()); err == nil {
		t.Fatal("Run succeeded with no source files present")
	}
}

// corruptCSV appends a row with too few fields.
func corruptCSV(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	if _, err := f.WriteString("lonely_value\n"); err != nil {
		t.Fatalf("append to %s: %v", name, err)
	}
}

func TestRunRaggedRowFatal(t *testing.T) {
	dir := t.TempDir()
	testfix.WriteCSVs(t, dir)
	corruptCSV(t, dir, "olist_sellers_dataset.csv")
	sess := newSession(t)

	if _, err := New(sess, testSpec(dir)).Run(context.Background()); err == nil {
		t.Fatal("Run succeeded with a ragged source row")
	}
}

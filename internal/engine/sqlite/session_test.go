package sqlite

import (
	"context"
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"

	"retailetl/internal/engine"
	"retailetl/internal/schema"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	s, err := New(context.Background(), "file:"+t.TempDir()+"/engine_test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestCreateTableAndCopyFrom verifies the staged-table round trip: recreate,
// bulk insert, count, and column introspection.
func TestCreateTableAndCopyFrom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestSession(t)

	def := schema.TableDef{Name: "items", Columns: []schema.ColumnDef{
		{Name: "id", Type: schema.TypeText},
		{Name: "qty", Type: schema.TypeInteger},
		{Name: "price", Type: schema.TypeReal},
	}}
	if err := s.CreateTable(ctx, def); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	rows := [][]any{
		{"a", int64(1), 9.99},
		{"b", int64(2), nil},
	}
	n, err := s.CopyFrom(ctx, "items", def.ColumnNames(), rows)
	if err != nil {
		t.Fatalf("CopyFrom() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CopyFrom() = %d rows, want 2", n)
	}

	count, err := engine.CountRows(ctx, s, "items")
	if err != nil {
		t.Fatalf("CountRows() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountRows() = %d, want 2", count)
	}

	cols, err := engine.TableColumns(ctx, s, "items")
	if err != nil {
		t.Fatalf("TableColumns() error = %v", err)
	}
	want := []string{"id", "qty", "price"}
	if len(cols) != len(want) {
		t.Fatalf("TableColumns() = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("TableColumns()[%d] = %q, want %q", i, cols[i], want[i])
		}
	}
}

// TestCreateTableReplaces verifies that CreateTable drops prior content: the
// pipeline recomputes everything per run.
func TestCreateTableReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestSession(t)

	def := schema.TableDef{Name: "t", Columns: []schema.ColumnDef{{Name: "v", Type: schema.TypeInteger}}}
	if err := s.CreateTable(ctx, def); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	if _, err := s.CopyFrom(ctx, "t", []string{"v"}, [][]any{{int64(1)}}); err != nil {
		t.Fatalf("CopyFrom() error = %v", err)
	}

	if err := s.CreateTable(ctx, def); err != nil {
		t.Fatalf("CreateTable() second call error = %v", err)
	}
	count, err := engine.CountRows(ctx, s, "t")
	if err != nil {
		t.Fatalf("CountRows() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountRows() after recreate = %d, want 0", count)
	}
}

// TestCopyFromRowWidthMismatch verifies that a misaligned row aborts the load
// inside its transaction.
func TestCopyFromRowWidthMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestSession(t)

	def := schema.TableDef{Name: "t", Columns: []schema.ColumnDef{
		{Name: "a", Type: schema.TypeText},
		{Name: "b", Type: schema.TypeText},
	}}
	if err := s.CreateTable(ctx, def); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	_, err := s.CopyFrom(ctx, "t", []string{"a", "b"}, [][]any{{"only-one"}})
	if err == nil {
		t.Fatal("CopyFrom() error = nil, want row width error")
	}

	count, err := engine.CountRows(ctx, s, "t")
	if err != nil {
		t.Fatalf("CountRows() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountRows() after failed load = %d, want 0 (rolled back)", count)
	}
}

// TestConcurrentWritersOnFileDSN verifies that parallel table loads over one
// session succeed against an on-disk database. The staging stage fans writers
// out over all sources, so the pool must serialize them instead of surfacing
// SQLITE_BUSY.
func TestConcurrentWritersOnFileDSN(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := New(ctx, t.TempDir()+"/retail.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 7; i++ {
		name := fmt.Sprintf("stage_%d", i)
		g.Go(func() error {
			def := schema.TableDef{Name: name, Columns: []schema.ColumnDef{
				{Name: "id", Type: schema.TypeText},
				{Name: "v", Type: schema.TypeInteger},
			}}
			if err := s.CreateTable(gctx, def); err != nil {
				return err
			}
			rows := make([][]any, 50)
			for j := range rows {
				rows[j] = []any{fmt.Sprintf("%s-%d", name, j), int64(j)}
			}
			_, err := s.CopyFrom(gctx, name, def.ColumnNames(), rows)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent load error = %v", err)
	}

	for i := 0; i < 7; i++ {
		name := fmt.Sprintf("stage_%d", i)
		count, err := engine.CountRows(ctx, s, name)
		if err != nil {
			t.Fatalf("CountRows(%s) error = %v", name, err)
		}
		if count != 50 {
			t.Errorf("CountRows(%s) = %d, want 50", name, count)
		}
	}
}

// TestWindowFunctionsAvailable guards the engine requirement the per-seller
// ranking depends on: DENSE_RANK must be evaluable.
func TestWindowFunctionsAvailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestSession(t)

	rows, err := s.Query(ctx, "SELECT DENSE_RANK() OVER (ORDER BY x DESC) FROM (SELECT 1 AS x UNION ALL SELECT 1)")
	if err != nil {
		t.Fatalf("window query error = %v", err)
	}
	defer rows.Close()

	var ranks []int64
	for rows.Next() {
		var r int64
		if err := rows.Scan(&r); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		ranks = append(ranks, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err() = %v", err)
	}
	if len(ranks) != 2 || ranks[0] != 1 || ranks[1] != 1 {
		t.Errorf("DENSE_RANK over tied values = %v, want [1 1]", ranks)
	}
}

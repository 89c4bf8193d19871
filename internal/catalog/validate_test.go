package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"retailetl/internal/sink"
)

func writeDataset(t *testing.T, rows []sink.FactOrderRow) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "fact_orders")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(filepath.Join(dir, sink.DataFileName))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := parquet.NewGenericWriter[sink.FactOrderRow](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return dir
}

func ptr[T any](v T) *T { return &v }

func TestValidateAggregatesByCategory(t *testing.T) {
	dir := writeDataset(t, []sink.FactOrderRow{
		{OrderID: "A", OrderItemID: 1, ProductID: "P1", SellerID: "S1",
			Price: ptr(50.0), ProductCategoryName: ptr("unknown")},
		{OrderID: "A", OrderItemID: 1, ProductID: "P1", SellerID: "S1",
			Price: ptr(50.0), ProductCategoryName: ptr("unknown")},
		{OrderID: "B", OrderItemID: 1, ProductID: "P2", SellerID: "S1",
			Price: ptr(50.0), ProductCategoryName: ptr("perfumaria")},
		{OrderID: "C", OrderItemID: 1, ProductID: "P3", SellerID: "S1",
			Price: ptr(30.0), ProductCategoryName: ptr("esporte_lazer")},
	})

	got, err := Validate(dir)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := []CategoryRevenue{
		{Category: "unknown", Revenue: 100},
		{Category: "perfumaria", Revenue: 50},
		{Category: "esporte_lazer", Revenue: 30},
	}
	if len(got) != len(want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("categories[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestValidateNullCategoryAndPrice(t *testing.T) {
	dir := writeDataset(t, []sink.FactOrderRow{
		{OrderID: "A", OrderItemID: 1, ProductID: "P1", SellerID: "S1", Price: ptr(10.0)},
		{OrderID: "B", OrderItemID: 1, ProductID: "P2", SellerID: "S1",
			ProductCategoryName: ptr("perfumaria")},
	})

	got, err := Validate(dir)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	revs := map[string]float64{}
	for _, cr := range got {
		revs[cr.Category] = cr.Revenue
	}
	if revs[NullCategory] != 10 {
		t.Errorf("null-category revenue = %v, want 10", revs[NullCategory])
	}
	if rev, ok := revs["perfumaria"]; !ok || rev != 0 {
		t.Errorf("perfumaria revenue = %v (present=%v), want 0 from a null price", rev, ok)
	}
}

func TestValidateEmptyDatasetFails(t *testing.T) {
	dir := writeDataset(t, nil)
	if _, err := Validate(dir); err == nil {
		t.Fatal("Validate accepted an empty dataset")
	}
}

func TestValidateMissingDatasetFails(t *testing.T) {
	if _, err := Validate(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("Validate accepted a missing dataset")
	}
}

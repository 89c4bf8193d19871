package schema

import (
	"testing"
	"time"

	"retailetl/pkg/records"
)

func sampleRows(col string, values ...any) []records.Record {
	rows := make([]records.Record, len(values))
	for i, v := range values {
		rows[i] = records.Record{col: v}
	}
	return rows
}

// TestInferColumnTypes exercises the conservative classification rules.
func TestInferColumnTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []any
		want   ColType
	}{
		{"all ints", []any{"1", "2", "30"}, TypeInteger},
		{"ints with nulls", []any{"1", nil, "2"}, TypeInteger},
		{"floats", []any{"29.90", "8.72"}, TypeReal},
		{"mixed int and float", []any{"1", "2.5"}, TypeReal},
		{"timestamps", []any{"2017-10-02 10:56:33", "2018-01-01 00:00:00"}, TypeTimestamp},
		{"dates", []any{"2017-10-02"}, TypeTimestamp},
		{"hex ids", []any{"e481f51cbdc54678b7cc49136f2d6af7"}, TypeText},
		{"mixed text and int", []any{"1", "abc"}, TypeText},
		{"all null", []any{nil, nil}, TypeText},
		{"empty sample", nil, TypeText},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			def := InferTableDef("t", []string{"c"}, sampleRows("c", tc.values...))
			if got := def.Columns[0].Type; got != tc.want {
				t.Errorf("inferred type = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestInferTableDefOrder verifies column order follows the header order, not
// map iteration order.
func TestInferTableDefOrder(t *testing.T) {
	t.Parallel()

	cols := []string{"b", "a", "c"}
	def := InferTableDef("t", cols, []records.Record{{"a": "1", "b": "x", "c": "2.5"}})

	got := def.ColumnNames()
	for i := range cols {
		if got[i] != cols[i] {
			t.Fatalf("ColumnNames() = %v, want %v", got, cols)
		}
	}
	if def.Columns[0].Type != TypeText || def.Columns[1].Type != TypeInteger || def.Columns[2].Type != TypeReal {
		t.Errorf("types = %v, want [text integer real]", def.Columns)
	}
}

// TestCoerce verifies string-to-scalar conversion per column type, including
// the keep-as-string fallback for unparseable values.
func TestCoerce(t *testing.T) {
	t.Parallel()

	if got := Coerce("42", TypeInteger); got != int64(42) {
		t.Errorf("Coerce(42, integer) = %#v, want int64(42)", got)
	}
	if got := Coerce("29.90", TypeReal); got != 29.90 {
		t.Errorf("Coerce(29.90, real) = %#v, want 29.90", got)
	}
	if got := Coerce(nil, TypeReal); got != nil {
		t.Errorf("Coerce(nil) = %#v, want nil", got)
	}
	if got := Coerce("oops", TypeInteger); got != "oops" {
		t.Errorf("Coerce(oops, integer) = %#v, want fallback string", got)
	}

	ts, ok := Coerce("2017-10-02 10:56:33", TypeTimestamp).(time.Time)
	if !ok {
		t.Fatalf("Coerce(timestamp) did not return time.Time")
	}
	if ts.Year() != 2017 || ts.Month() != time.October {
		t.Errorf("Coerce(timestamp) = %v, want 2017-10-02", ts)
	}
}

// TestCoerceRecord verifies in-place coercion across a whole row.
func TestCoerceRecord(t *testing.T) {
	t.Parallel()

	def := TableDef{Name: "t", Columns: []ColumnDef{
		{Name: "id", Type: TypeText},
		{Name: "qty", Type: TypeInteger},
		{Name: "price", Type: TypeReal},
	}}
	rec := records.Record{"id": "p1", "qty": "3", "price": "9.99"}

	got := CoerceRecord(rec, def)
	if got["id"] != "p1" {
		t.Errorf("id = %#v, want string preserved", got["id"])
	}
	if got["qty"] != int64(3) {
		t.Errorf("qty = %#v, want int64(3)", got["qty"])
	}
	if got["price"] != 9.99 {
		t.Errorf("price = %#v, want 9.99", got["price"])
	}
}

// Package records defines the schemaless row representation shared by the
// parser, loader, and test helpers.
//
// A Record maps normalized column names to parsed values. Values are either
// nil (SQL NULL), string (uncoerced), or one of the coerced scalar types
// (int64, float64, time.Time) produced by the loader's type coercion step.
package records

// Record is a single parsed row keyed by normalized column name.
type Record map[string]any

// Row materializes the record as a positional slice aligned to the given
// column order. Missing keys become nil.
func (r Record) Row(columns []string) []any {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = r[c]
	}
	return row
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

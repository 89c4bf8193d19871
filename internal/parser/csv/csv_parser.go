// Package csv implements a streaming CSV reader for the seven delimited,
// header-bearing source files. It avoids whole-file buffering and surfaces
// malformed input as hard errors: a broken source file aborts the run before
// any downstream query executes.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"retailetl/pkg/records"
)

// Options configures the CSV reader behavior. All fields are optional;
// sensible defaults are applied when a field is zero.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing ASCII spaces from each field value.
	TrimSpace bool
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Stream reads one CSV source incrementally. The header row is consumed and
// normalized at construction time so callers can derive a table definition
// before the first data row is read. Stream is not concurrency-safe.
type Stream struct {
	cr      *csv.Reader
	opt     Options
	columns []string
	line    int
}

// NewStream wraps r, reads the header row, and returns a Stream positioned at
// the first data row. Header names are normalized to canonical column keys
// (see NormalizeHeader); a missing or empty header row is an error.
func NewStream(r io.Reader, opt Options) (*Stream, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(h))
	for i, col := range h {
		c := col
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		columns[i] = NormalizeHeader(c)
	}

	return &Stream{cr: cr, opt: opt, columns: columns, line: 1}, nil
}

// Columns returns the normalized header names in file order.
func (s *Stream) Columns() []string { return s.columns }

// Next returns the next data row keyed by normalized column name, or io.EOF
// when the source is exhausted. Empty cells become nil (SQL NULL). A row whose
// width differs from the header is a hard error; the encoding/csv reader
// enforces this via FieldsPerRecord.
func (s *Stream) Next() (records.Record, error) {
	row, err := s.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	s.line++
	if err != nil {
		return nil, fmt.Errorf("read csv row %d: %w", s.line, err)
	}

	rec := make(records.Record, len(row))
	for i, val := range row {
		if s.opt.TrimSpace {
			val = strings.TrimSpace(val)
		}
		rec[s.columns[i]] = emptyToNil(val)
	}
	return rec, nil
}

// Parse consumes the entire source through a Stream and returns all rows plus
// the normalized header. It is a convenience for small inputs and tests; the
// loader uses Stream directly to keep memory bounded.
func Parse(r io.Reader, opt Options) ([]records.Record, []string, error) {
	s, err := NewStream(r, opt)
	if err != nil {
		return nil, nil, err
	}

	var out []records.Record
	for {
		rec, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rec)
	}
	return out, s.Columns(), nil
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package schema

import (
	"strconv"
	"time"

	"retailetl/pkg/records"
)

// timestampLayouts are tried in order when classifying a sample value as a
// timestamp. The Olist exports use the first form throughout.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// InferTableDef classifies each column of a sampled row set and returns a
// table definition. Classification is conservative: a column becomes INTEGER
// or REAL only when every non-null sampled value parses as such, TIMESTAMP
// only when every non-null sampled value matches a known layout, and TEXT
// otherwise. A column with no non-null samples stays TEXT.
//
// Columns must be the normalized header names in file order; sample rows are
// expected to hold nil or string values (pre-coercion parser output).
func InferTableDef(name string, columns []string, sample []records.Record) TableDef {
	defs := make([]ColumnDef, len(columns))
	for i, col := range columns {
		defs[i] = ColumnDef{Name: col, Type: inferColumn(col, sample)}
	}
	return TableDef{Name: name, Columns: defs}
}

func inferColumn(col string, sample []records.Record) ColType {
	var (
		seen    bool
		allInt  = true
		allReal = true
		allTime = true
	)
	for _, rec := range sample {
		v, ok := rec[col]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			// Already coerced by an earlier pass; classify by Go type.
			switch v.(type) {
			case int64, int:
				seen = true
				allTime = false
				continue
			case float64:
				seen = true
				allInt = false
				allTime = false
				continue
			case time.Time:
				seen = true
				allInt = false
				allReal = false
				continue
			default:
				return TypeText
			}
		}
		seen = true

		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allReal {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allReal = false
			}
		}
		if allTime && !isTimestamp(s) {
			allTime = false
		}
		if !allInt && !allReal && !allTime {
			return TypeText
		}
	}

	switch {
	case !seen:
		return TypeText
	case allInt:
		return TypeInteger
	case allReal:
		return TypeReal
	case allTime:
		return TypeTimestamp
	default:
		return TypeText
	}
}

func isTimestamp(s string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// Coerce converts a parsed string value to the Go type matching the column
// type: int64, float64, or time.Time. Values that fail to convert are kept as
// strings; the engine will surface a type error if the column truly cannot
// hold them. Nil passes through as SQL NULL.
func Coerce(v any, typ ColType) any {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch typ {
	case TypeInteger:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	case TypeReal:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case TypeTimestamp:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return s
}

// CoerceRecord applies Coerce to every column of rec in place, per the table
// definition, and returns rec.
func CoerceRecord(rec records.Record, def TableDef) records.Record {
	for _, c := range def.Columns {
		if v, ok := rec[c.Name]; ok {
			rec[c.Name] = Coerce(v, c.Type)
		}
	}
	return rec
}

// Package schema holds the generic table model shared by the loader, the
// engine backends, and the sink: column/type definitions, sample-based type
// inference for the delimited sources, and the registry of Olist input tables
// plus the fixed fact-table contract.
package schema

// ColType is the engine-agnostic column type vocabulary. Each engine backend
// maps these onto its own DDL type names.
type ColType string

const (
	TypeText      ColType = "text"
	TypeInteger   ColType = "integer"
	TypeReal      ColType = "real"
	TypeTimestamp ColType = "timestamp"
)

// ColumnDef describes one column of a staged or derived table.
type ColumnDef struct {
	Name string
	Type ColType
}

// TableDef describes a table by name and ordered column list.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// ColumnNames returns the column names in definition order.
func (t TableDef) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the definition of the named column and whether it exists.
func (t TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

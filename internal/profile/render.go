package profile

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Render writes the collected profiles as aligned text tables.
func Render(w io.Writer, profiles []TableProfile) {
	counts := tablewriter.NewWriter(w)
	counts.SetHeader([]string{"table", "rows"})
	for _, p := range profiles {
		counts.Append([]string{p.Table, strconv.FormatInt(p.Rows, 10)})
	}
	counts.Render()

	var withNulls []TableProfile
	for _, p := range profiles {
		if len(p.Nulls) > 0 {
			withNulls = append(withNulls, p)
		}
	}
	if len(withNulls) == 0 {
		return
	}

	nulls := tablewriter.NewWriter(w)
	nulls.SetHeader([]string{"table", "column", "nulls"})
	for _, p := range withNulls {
		for _, nc := range p.Nulls {
			nulls.Append([]string{p.Table, nc.Column, strconv.FormatInt(nc.Nulls, 10)})
		}
	}
	nulls.Render()
}

package catalog

import (
	"fmt"
	"log"
	"sort"

	"retailetl/internal/sink"
)

// NullCategory labels rows whose category is NULL in the published dataset
// (a product join that found no match).
const NullCategory = "(null)"

// CategoryRevenue is one row of the read-back validation: summed price per
// product category, in descending revenue order.
type CategoryRevenue struct {
	Category string
	Revenue  float64
}

// Validate reads the published dataset back from disk and aggregates revenue
// by category. It returns an error when the dataset cannot be read or holds
// no rows; the caller reports that as a validation failure, distinct from a
// pipeline failure, because the fact table was already written.
func Validate(dir string) ([]CategoryRevenue, error) {
	rows, err := sink.ReadAll(dir)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog: dataset %s holds no rows", dir)
	}

	totals := map[string]float64{}
	for _, r := range rows {
		cat := NullCategory
		if r.ProductCategoryName != nil {
			cat = *r.ProductCategoryName
		}
		if r.Price != nil {
			totals[cat] += *r.Price
		} else if _, seen := totals[cat]; !seen {
			totals[cat] = 0
		}
	}

	out := make([]CategoryRevenue, 0, len(totals))
	for cat, rev := range totals {
		out = append(out, CategoryRevenue{Category: cat, Revenue: rev})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Category < out[j].Category
	})

	log.Printf("catalog: validation read %d rows across %d categories", len(rows), len(out))
	return out, nil
}

// Package sink persists the fact table as a parquet dataset. The on-disk
// contract is the nine-column row below; the wide fact table in the engine
// keeps every joined column, and the sink projects the contract columns out
// of it.
//
// Output is a directory (the dataset), replaced atomically on rewrite: rows
// stream into a hidden sibling directory which is renamed over the previous
// dataset only after a clean writer close. A failed run leaves the earlier
// dataset untouched.
package sink

import (
	"fmt"
	"strconv"
	"strings"
)

// DataFileName is the single data file inside the dataset directory.
const DataFileName = "data.parquet"

// FactOrderRow is the persisted projection of one fact row. Pointer fields
// are optional parquet columns; they are nil when the source value was NULL
// (a missed left join or a null measure).
type FactOrderRow struct {
	OrderID             string   `parquet:"order_id"`
	OrderItemID         int32    `parquet:"order_item_id"`
	ProductID           string   `parquet:"product_id"`
	SellerID            string   `parquet:"seller_id"`
	Price               *float64 `parquet:"price,optional"`
	FreightValue        *float64 `parquet:"freight_value,optional"`
	ProductCategoryName *string  `parquet:"product_category_name,optional"`
	PaymentType         *string  `parquet:"payment_type,optional"`
	PaymentValue        *float64 `parquet:"payment_value,optional"`
}

// canonical renders the row in a fixed textual form for fingerprinting.
// NULL and value are distinguishable ("\x00" vs a formatted value).
func (r FactOrderRow) canonical() string {
	var b strings.Builder
	b.WriteString(r.OrderID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(int64(r.OrderItemID), 10))
	b.WriteByte('|')
	b.WriteString(r.ProductID)
	b.WriteByte('|')
	b.WriteString(r.SellerID)
	for _, f := range []*float64{r.Price, r.FreightValue} {
		b.WriteByte('|')
		writeOptFloat(&b, f)
	}
	for _, s := range []*string{r.ProductCategoryName, r.PaymentType} {
		b.WriteByte('|')
		writeOptString(&b, s)
	}
	b.WriteByte('|')
	writeOptFloat(&b, r.PaymentValue)
	return b.String()
}

func writeOptFloat(b *strings.Builder, v *float64) {
	if v == nil {
		b.WriteByte(0)
		return
	}
	b.WriteString(strconv.FormatFloat(*v, 'g', -1, 64))
}

func writeOptString(b *strings.Builder, v *string) {
	if v == nil {
		b.WriteByte(0)
		return
	}
	b.WriteString(*v)
}

// String implements fmt.Stringer for log lines.
func (r FactOrderRow) String() string {
	return fmt.Sprintf("FactOrderRow(%s/%d)", r.OrderID, r.OrderItemID)
}

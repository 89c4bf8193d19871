// Package testfix provides the miniature Olist dataset shared by the stage
// tests: CSV fixtures for loader/pipeline tests and direct staging helpers
// for the clean/fact/report tests that do not need to exercise parsing.
//
// The dataset is small but deliberately covers every contract edge:
//
//   - order "A" appears twice in orders.csv, differing only in a timestamp
//     (dedup keeps exactly one);
//   - order item C/1 is a fully-duplicate row (collapsed by DISTINCT);
//   - product P1 has a null category (filled with "unknown");
//   - order "A" has two payments (fact fan-out: its one item yields two
//     fact rows);
//   - order "D" has no payment (left-join nulls survive);
//   - order item E/1 references no known order (dropped by the inner join).
package testfix

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"retailetl/internal/engine"
	"retailetl/internal/schema"
)

// CSV fixture bodies keyed by file name.
var csvFiles = map[string]string{
	"olist_customers_dataset.csv": `customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state
c1,u1,14409,franca,SP
c2,u2,9790,sao paulo,SP
c3,u3,1151,rio de janeiro,RJ
`,
	"olist_orders_dataset.csv": `order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at
A,c1,delivered,2017-10-02 10:56:33,2017-10-02 11:07:15
A,c1,delivered,2017-10-02 10:56:33,2017-10-02 12:00:00
B,c2,delivered,2017-11-18 19:28:06,2017-11-18 19:45:59
C,c1,shipped,2018-02-13 21:18:39,
D,c3,delivered,2018-06-09 17:00:18,2018-06-09 17:10:12
`,
	"olist_order_items_dataset.csv": `order_id,order_item_id,product_id,seller_id,shipping_limit_date,price,freight_value
A,1,P1,S1,2017-10-06 11:07:15,50.00,8.72
B,1,P2,S1,2017-11-23 19:45:59,50.00,22.76
C,1,P3,S1,2018-02-19 20:31:37,30.00,14.10
C,1,P3,S1,2018-02-19 20:31:37,30.00,14.10
D,1,P1,S2,2018-06-14 17:10:12,99.90,12.00
E,1,P9,S9,2018-07-01 00:00:00,10.00,1.00
`,
	"olist_order_payments_dataset.csv": `order_id,payment_sequential,payment_type,payment_installments,payment_value
A,1,credit_card,2,29.36
A,2,voucher,1,29.36
B,1,boleto,1,72.76
C,1,credit_card,3,44.10
`,
	"olist_products_dataset.csv": `product_id,product_category_name,product_weight_g
P1,,200
P2,perfumaria,350
P3,esporte_lazer,150
`,
	"olist_sellers_dataset.csv": `seller_id,seller_zip_code_prefix,seller_city,seller_state
S1,13023,campinas,SP
S2,87900,loanda,PR
`,
	"olist_order_reviews_dataset.csv": `review_id,order_id,review_score,review_comment_title,review_comment_message,review_creation_date
r1,A,4,,muito bom,2017-10-11 00:00:00
r2,B,5,perfeito,,2017-11-25 00:00:00
r3,C,1,,,2018-02-20 00:00:00
`,
}

// Derived expectations for the fixture dataset, used in assertions.
const (
	// CleanOrders is the distinct order_id count after dedup (A B C D).
	CleanOrders = 4
	// CleanOrderItems is the item count after full-row dedup (A1 B1 C1 D1 E1).
	CleanOrderItems = 5
	// FactRows is the fact cardinality: A fans out over two payments; E is
	// dropped by the inner join; B, C, D contribute one row each.
	FactRows = 5
	// TotalRevenue sums price over fact rows: 50*2 + 50 + 30 + 99.90.
	TotalRevenue = 279.90
)

// WriteCSVs materializes the seven fixture files into dir.
func WriteCSVs(t *testing.T, dir string) {
	t.Helper()
	for name, body := range csvFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}
}

// stagedTable pairs a definition with its rows for direct staging.
type stagedTable struct {
	def  schema.TableDef
	rows [][]any
}

func text(n string) schema.ColumnDef { return schema.ColumnDef{Name: n, Type: schema.TypeText} }
func intg(n string) schema.ColumnDef { return schema.ColumnDef{Name: n, Type: schema.TypeInteger} }
func dbl(n string) schema.ColumnDef { return schema.ColumnDef{Name: n, Type: schema.TypeReal} }

var staged = []stagedTable{
	{
		def: schema.TableDef{Name: "customers", Columns: []schema.ColumnDef{
			text("customer_id"), text("customer_unique_id"), intg("customer_zip_code_prefix"),
			text("customer_city"), text("customer_state"),
		}},
		rows: [][]any{
			{"c1", "u1", int64(14409), "franca", "SP"},
			{"c2", "u2", int64(9790), "sao paulo", "SP"},
			{"c3", "u3", int64(1151), "rio de janeiro", "RJ"},
		},
	},
	{
		def: schema.TableDef{Name: "orders", Columns: []schema.ColumnDef{
			text("order_id"), text("customer_id"), text("order_status"),
			text("order_purchase_timestamp"), text("order_approved_at"),
		}},
		rows: [][]any{
			{"A", "c1", "delivered", "2017-10-02 10:56:33", "2017-10-02 11:07:15"},
			{"A", "c1", "delivered", "2017-10-02 10:56:33", "2017-10-02 12:00:00"},
			{"B", "c2", "delivered", "2017-11-18 19:28:06", "2017-11-18 19:45:59"},
			{"C", "c1", "shipped", "2018-02-13 21:18:39", nil},
			{"D", "c3", "delivered", "2018-06-09 17:00:18", "2018-06-09 17:10:12"},
		},
	},
	{
		def: schema.TableDef{Name: "order_items", Columns: []schema.ColumnDef{
			text("order_id"), intg("order_item_id"), text("product_id"), text("seller_id"),
			text("shipping_limit_date"), dbl("price"), dbl("freight_value"),
		}},
		rows: [][]any{
			{"A", int64(1), "P1", "S1", "2017-10-06 11:07:15", 50.00, 8.72},
			{"B", int64(1), "P2", "S1", "2017-11-23 19:45:59", 50.00, 22.76},
			{"C", int64(1), "P3", "S1", "2018-02-19 20:31:37", 30.00, 14.10},
			{"C", int64(1), "P3", "S1", "2018-02-19 20:31:37", 30.00, 14.10},
			{"D", int64(1), "P1", "S2", "2018-06-14 17:10:12", 99.90, 12.00},
			{"E", int64(1), "P9", "S9", "2018-07-01 00:00:00", 10.00, 1.00},
		},
	},
	{
		def: schema.TableDef{Name: "payments", Columns: []schema.ColumnDef{
			text("order_id"), intg("payment_sequential"), text("payment_type"),
			intg("payment_installments"), dbl("payment_value"),
		}},
		rows: [][]any{
			{"A", int64(1), "credit_card", int64(2), 29.36},
			{"A", int64(2), "voucher", int64(1), 29.36},
			{"B", int64(1), "boleto", int64(1), 72.76},
			{"C", int64(1), "credit_card", int64(3), 44.10},
		},
	},
	{
		def: schema.TableDef{Name: "products", Columns: []schema.ColumnDef{
			text("product_id"), text("product_category_name"), intg("product_weight_g"),
		}},
		rows: [][]any{
			{"P1", nil, int64(200)},
			{"P2", "perfumaria", int64(350)},
			{"P3", "esporte_lazer", int64(150)},
		},
	},
	{
		def: schema.TableDef{Name: "sellers", Columns: []schema.ColumnDef{
			text("seller_id"), intg("seller_zip_code_prefix"), text("seller_city"), text("seller_state"),
		}},
		rows: [][]any{
			{"S1", int64(13023), "campinas", "SP"},
			{"S2", int64(87900), "loanda", "PR"},
		},
	},
	{
		def: schema.TableDef{Name: "reviews", Columns: []schema.ColumnDef{
			text("review_id"), text("order_id"), intg("review_score"),
			text("review_comment_title"), text("review_comment_message"), text("review_creation_date"),
		}},
		rows: [][]any{
			{"r1", "A", int64(4), nil, "muito bom", "2017-10-11 00:00:00"},
			{"r2", "B", int64(5), "perfeito", nil, "2017-11-25 00:00:00"},
			{"r3", "C", int64(1), nil, nil, "2018-02-20 00:00:00"},
		},
	},
}

// Stage creates and fills the seven source tables directly in the session,
// bypassing the CSV layer.
func Stage(t *testing.T, ctx context.Context, sess engine.Session) {
	t.Helper()
	for _, st := range staged {
		if err := sess.CreateTable(ctx, st.def); err != nil {
			t.Fatalf("stage %s: create: %v", st.def.Name, err)
		}
		if _, err := sess.CopyFrom(ctx, st.def.Name, st.def.ColumnNames(), st.rows); err != nil {
			t.Fatalf("stage %s: load: %v", st.def.Name, err)
		}
	}
}

package schema

// SourceTable binds a logical table name to its file under the dataset base
// path.
type SourceTable struct {
	// Name is the staging table name inside the engine.
	Name string

	// File is the fixed file name under source.base_path.
	File string
}

// Sources lists the seven delimited inputs in load order. The names double as
// profiler report labels.
var Sources = []SourceTable{
	{Name: "customers", File: "olist_customers_dataset.csv"},
	{Name: "orders", File: "olist_orders_dataset.csv"},
	{Name: "order_items", File: "olist_order_items_dataset.csv"},
	{Name: "payments", File: "olist_order_payments_dataset.csv"},
	{Name: "products", File: "olist_products_dataset.csv"},
	{Name: "sellers", File: "olist_sellers_dataset.csv"},
	{Name: "reviews", File: "olist_order_reviews_dataset.csv"},
}

// NullProfiled names the tables whose per-column null counts the profiler
// reports.
var NullProfiled = []string{"products", "orders", "reviews"}

// Staging table names produced by the cleaning pass and the fact builder.
// Cleaned relations get their own tables so raw inputs stay inspectable.
const (
	TableOrdersClean     = "orders_clean"
	TableOrderItemsClean = "order_items_clean"
	TableProductsClean   = "products_clean"
	TableFactOrders      = "fact_orders"
)

// FactColumns is the fixed output contract of the sink: the nine-column
// FactOrderRow projection written to parquet and registered in the catalog,
// in this exact order.
var FactColumns = []ColumnDef{
	{Name: "order_id", Type: TypeText},
	{Name: "order_item_id", Type: TypeInteger},
	{Name: "product_id", Type: TypeText},
	{Name: "seller_id", Type: TypeText},
	{Name: "price", Type: TypeReal},
	{Name: "freight_value", Type: TypeReal},
	{Name: "product_category_name", Type: TypeText},
	{Name: "payment_type", Type: TypeText},
	{Name: "payment_value", Type: TypeReal},
}

// FactTableDef returns the sink contract as a table definition named after
// the engine-side fact table.
func FactTableDef() TableDef {
	cols := make([]ColumnDef, len(FactColumns))
	copy(cols, FactColumns)
	return TableDef{Name: TableFactOrders, Columns: cols}
}

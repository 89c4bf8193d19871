// Package fact assembles the denormalized order-item fact table. The grain
// is one row per (order item x payment): the driving table is the cleaned
// order items, orders must match (inner join), and products, sellers, and
// payments enrich when present (left joins). An order with several payments
// fans its items out into several fact rows; that is the retained grain, so
// revenue sums over the fact count payments, not orders.
package fact

import (
	"context"
	"fmt"
	"log"
	"strings"

	"retailetl/internal/engine"
	"retailetl/internal/schema"
)

// joined lists the tables in join order. Alias order doubles as column
// precedence: when two tables expose the same column name, the later one
// supplies the fact value. Join keys are exempt and always come from the
// driving table, so a missed left join cannot null them out.
var joined = []struct {
	table string
	alias string
	key   string // join column; empty for the driving table
	inner bool
}{
	{table: schema.TableOrderItemsClean, alias: "i"},
	{table: schema.TableOrdersClean, alias: "o", key: "order_id", inner: true},
	{table: schema.TableProductsClean, alias: "p", key: "product_id"},
	{table: "sellers", alias: "s", key: "seller_id"},
	{table: "payments", alias: "y", key: "order_id"},
}

// driveAlias is the driving table's alias.
const driveAlias = "i"

// joinKeys are resolved from the driving table regardless of precedence.
var joinKeys = map[string]bool{
	"order_id":   true,
	"product_id": true,
	"seller_id":  true,
}

// Build derives the fact table and returns its row count and column list.
// The column set is the union of all joined tables' columns, ordered by
// first appearance in the join chain.
func Build(ctx context.Context, sess engine.Session) (int64, []string, error) {
	// order is the union column order; source maps each column to the alias
	// that supplies it.
	var order []string
	source := map[string]string{}
	for _, j := range joined {
		cols, err := engine.TableColumns(ctx, sess, j.table)
		if err != nil {
			return 0, nil, fmt.Errorf("fact: columns of %s: %w", j.table, err)
		}
		for _, col := range cols {
			if _, seen := source[col]; !seen {
				order = append(order, col)
				source[col] = j.alias
				continue
			}
			if !joinKeys[col] {
				source[col] = j.alias
			}
		}
	}

	selects := make([]string, len(order))
	for idx, col := range order {
		alias := source[col]
		if joinKeys[col] {
			alias = driveAlias
		}
		selects[idx] = fmt.Sprintf("%s.%s AS %s", alias, engine.QuoteIdent(col), engine.QuoteIdent(col))
	}

	var joinsSQL strings.Builder
	fmt.Fprintf(&joinsSQL, "%s %s", engine.QuoteIdent(joined[0].table), joined[0].alias)
	for _, j := range joined[1:] {
		kind := "LEFT JOIN"
		if j.inner {
			kind = "INNER JOIN"
		}
		fmt.Fprintf(&joinsSQL, "\n %s %s %s ON %s.%s = %s.%s",
			kind, engine.QuoteIdent(j.table), j.alias,
			driveAlias, engine.QuoteIdent(j.key), j.alias, engine.QuoteIdent(j.key))
	}

	target := engine.QuoteIdent(schema.TableFactOrders)
	if err := sess.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", target)); err != nil {
		return 0, nil, fmt.Errorf("fact: %w", err)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s AS SELECT %s\nFROM %s",
		target, strings.Join(selects, ", "), joinsSQL.String())
	if err := sess.Exec(ctx, stmt); err != nil {
		return 0, nil, fmt.Errorf("fact: %w", err)
	}

	rows, err := engine.CountRows(ctx, sess, schema.TableFactOrders)
	if err != nil {
		return 0, nil, fmt.Errorf("fact: %w", err)
	}
	log.Printf("fact: built %s rows=%d cols=%d", schema.TableFactOrders, rows, len(order))
	return rows, order, nil
}

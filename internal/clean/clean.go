// Package clean derives the cleaned staging tables the fact build reads:
//
//   - orders_clean: one representative row per order_id (which duplicate
//     survives is not specified and may differ between runs);
//   - order_items_clean: fully-duplicate item rows collapsed;
//   - products_clean: missing product_category_name replaced with "unknown".
//
// All three rules run as declarative statements in the engine session.
package clean

import (
	"context"
	"fmt"
	"log"
	"strings"

	"retailetl/internal/engine"
	"retailetl/internal/schema"
)

// FallbackCategory replaces a missing product_category_name.
const FallbackCategory = "unknown"

// Result reports the effect of each cleaning rule.
type Result struct {
	OrdersBefore     int64
	OrdersAfter      int64
	ItemsBefore      int64
	ItemsAfter       int64
	CategoriesFilled int64
}

// Run executes the cleaning rules and returns before/after counts. Partial
// state from a failed run is overwritten on the next run; no rollback is
// attempted.
func Run(ctx context.Context, sess engine.Session) (Result, error) {
	var res Result
	var err error

	if res.OrdersBefore, res.OrdersAfter, err = dedupOrders(ctx, sess); err != nil {
		return res, fmt.Errorf("clean orders: %w", err)
	}
	log.Printf("clean: orders %d -> %d (dropped %d duplicate order_id)",
		res.OrdersBefore, res.OrdersAfter, res.OrdersBefore-res.OrdersAfter)

	if res.ItemsBefore, res.ItemsAfter, err = dedupOrderItems(ctx, sess); err != nil {
		return res, fmt.Errorf("clean order_items: %w", err)
	}
	log.Printf("clean: order_items %d -> %d (dropped %d duplicate rows)",
		res.ItemsBefore, res.ItemsAfter, res.ItemsBefore-res.ItemsAfter)

	if res.CategoriesFilled, err = fillProductCategories(ctx, sess); err != nil {
		return res, fmt.Errorf("clean products: %w", err)
	}
	log.Printf("clean: products filled %d missing categories with %q",
		res.CategoriesFilled, FallbackCategory)

	return res, nil
}

// dedupOrders keeps an arbitrary representative per order_id. ROW_NUMBER
// without ORDER BY is valid on both backends and makes the arbitrariness
// explicit.
func dedupOrders(ctx context.Context, sess engine.Session) (before, after int64, err error) {
	before, err = engine.CountRows(ctx, sess, "orders")
	if err != nil {
		return 0, 0, err
	}

	cols, err := engine.TableColumns(ctx, sess, "orders")
	if err != nil {
		return 0, 0, err
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = engine.QuoteIdent(c)
	}

	target := engine.QuoteIdent(schema.TableOrdersClean)
	if err := sess.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", target)); err != nil {
		return 0, 0, err
	}
	stmt := fmt.Sprintf(
		`CREATE TABLE %s AS
		 SELECT %s FROM (
		   SELECT *, ROW_NUMBER() OVER (PARTITION BY %s) AS dedup_rank FROM %s
		 ) ranked WHERE dedup_rank = 1`,
		target, strings.Join(quoted, ", "),
		engine.QuoteIdent("order_id"), engine.QuoteIdent("orders"))
	if err := sess.Exec(ctx, stmt); err != nil {
		return 0, 0, err
	}

	after, err = engine.CountRows(ctx, sess, schema.TableOrdersClean)
	return before, after, err
}

// dedupOrderItems collapses rows identical across every column.
func dedupOrderItems(ctx context.Context, sess engine.Session) (before, after int64, err error) {
	before, err = engine.CountRows(ctx, sess, "order_items")
	if err != nil {
		return 0, 0, err
	}

	target := engine.QuoteIdent(schema.TableOrderItemsClean)
	if err := sess.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", target)); err != nil {
		return 0, 0, err
	}
	stmt := fmt.Sprintf("CREATE TABLE %s AS SELECT DISTINCT * FROM %s",
		target, engine.QuoteIdent("order_items"))
	if err := sess.Exec(ctx, stmt); err != nil {
		return 0, 0, err
	}

	after, err = engine.CountRows(ctx, sess, schema.TableOrderItemsClean)
	return before, after, err
}

// fillProductCategories copies products and backfills the category column.
func fillProductCategories(ctx context.Context, sess engine.Session) (int64, error) {
	target := engine.QuoteIdent(schema.TableProductsClean)
	if err := sess.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", target)); err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s",
		target, engine.QuoteIdent("products"))
	if err := sess.Exec(ctx, stmt); err != nil {
		return 0, err
	}

	col := engine.QuoteIdent("product_category_name")
	var missing int64
	rows, err := sess.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", target, col))
	if err != nil {
		return 0, err
	}
	if rows.Next() {
		if err := rows.Scan(&missing); err != nil {
			rows.Close()
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	update := fmt.Sprintf("UPDATE %s SET %s = '%s' WHERE %s IS NULL",
		target, col, FallbackCategory, col)
	if err := sess.Exec(ctx, update); err != nil {
		return 0, err
	}
	return missing, nil
}

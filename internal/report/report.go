// Package report runs the analytical queries over the fact table and the
// cleaned orders. Every aggregate is authored as SQL and delegated to the
// engine session; this package only shapes and presents the results.
//
// Revenue figures sum line-item price over fact rows. Because the fact grain
// fans an item out per payment, an order paid in several installments counts
// its items once per payment row. SUM skips NULL prices rather than poisoning
// the total.
package report

import (
	"context"
	"fmt"
	"log"

	"retailetl/internal/config"
	"retailetl/internal/engine"
	"retailetl/internal/schema"
)

// ProductRevenue is one row of the product revenue ranking.
type ProductRevenue struct {
	ProductID string
	Revenue   float64
}

// PaymentBucket summarizes one payment type across all payments.
type PaymentBucket struct {
	PaymentType string
	Orders      int64
	Total       float64
}

// SellerTopItem is one ranked line item within a seller's partition.
type SellerTopItem struct {
	SellerID  string
	ProductID string
	Price     float64
	Rank      int64
}

// CustomerOrders is one row of the customer order-count ranking.
type CustomerOrders struct {
	CustomerID string
	Orders     int64
}

// Report holds every aggregate of a run.
type Report struct {
	TotalRevenue float64
	TopProducts  []ProductRevenue
	Payments     []PaymentBucket
	SellerTop    []SellerTopItem
	TopCustomers []CustomerOrders
}

// Collect runs all aggregates and returns them. Limits come from cfg.
func Collect(ctx context.Context, sess engine.Session, cfg config.Report) (Report, error) {
	var (
		rep Report
		err error
	)

	if rep.TotalRevenue, err = totalRevenue(ctx, sess); err != nil {
		return rep, fmt.Errorf("report: total revenue: %w", err)
	}
	if rep.TopProducts, err = topProducts(ctx, sess, cfg.TopProducts); err != nil {
		return rep, fmt.Errorf("report: top products: %w", err)
	}
	if rep.Payments, err = paymentDistribution(ctx, sess); err != nil {
		return rep, fmt.Errorf("report: payment distribution: %w", err)
	}
	if rep.SellerTop, err = sellerTopItems(ctx, sess, cfg.TopPerSeller); err != nil {
		return rep, fmt.Errorf("report: seller top items: %w", err)
	}
	if rep.TopCustomers, err = topCustomers(ctx, sess, cfg.TopCustomers); err != nil {
		return rep, fmt.Errorf("report: top customers: %w", err)
	}

	log.Printf("report: revenue=%.2f products=%d payment_types=%d seller_rows=%d customers=%d",
		rep.TotalRevenue, len(rep.TopProducts), len(rep.Payments),
		len(rep.SellerTop), len(rep.TopCustomers))
	return rep, nil
}

func totalRevenue(ctx context.Context, sess engine.Session) (float64, error) {
	rows, err := sess.Query(ctx, fmt.Sprintf(
		"SELECT COALESCE(SUM(price), 0) FROM %s", engine.QuoteIdent(schema.TableFactOrders)))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var total float64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, err
		}
	}
	return total, rows.Err()
}

func topProducts(ctx context.Context, sess engine.Session, limit int) ([]ProductRevenue, error) {
	rows, err := sess.Query(ctx, fmt.Sprintf(
		`SELECT product_id, SUM(price) AS revenue
		 FROM %s
		 GROUP BY product_id
		 ORDER BY revenue DESC
		 LIMIT %d`, engine.QuoteIdent(schema.TableFactOrders), limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductRevenue
	for rows.Next() {
		var pr ProductRevenue
		if err := rows.Scan(&pr.ProductID, &pr.Revenue); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// paymentDistribution groups the raw payments table: order count and value
// total per payment type, largest total first.
func paymentDistribution(ctx context.Context, sess engine.Session) ([]PaymentBucket, error) {
	rows, err := sess.Query(ctx,
		`SELECT payment_type, COUNT(order_id) AS orders, COALESCE(SUM(payment_value), 0) AS total
		 FROM "payments"
		 GROUP BY payment_type
		 ORDER BY total DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentBucket
	for rows.Next() {
		var b PaymentBucket
		if err := rows.Scan(&b.PaymentType, &b.Orders, &b.Total); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// sellerTopItems ranks each seller's fact rows by price with DENSE_RANK, so
// price ties share a rank and the next distinct price takes the following
// one. Rows ranked past maxRank are cut, which can still return more than
// maxRank rows per seller when ties occur.
func sellerTopItems(ctx context.Context, sess engine.Session, maxRank int) ([]SellerTopItem, error) {
	rows, err := sess.Query(ctx, fmt.Sprintf(
		`SELECT seller_id, product_id, price, price_rank
		 FROM (
		   SELECT seller_id, product_id, price,
		          DENSE_RANK() OVER (PARTITION BY seller_id ORDER BY price DESC) AS price_rank
		   FROM %s
		 ) ranked
		 WHERE price_rank <= %d
		 ORDER BY seller_id, price_rank, product_id`,
		engine.QuoteIdent(schema.TableFactOrders), maxRank))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SellerTopItem
	for rows.Next() {
		var it SellerTopItem
		if err := rows.Scan(&it.SellerID, &it.ProductID, &it.Price, &it.Rank); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// topCustomers counts orders per customer over the cleaned orders, so each
// order_id contributes once no matter how many items or payments it has.
func topCustomers(ctx context.Context, sess engine.Session, limit int) ([]CustomerOrders, error) {
	rows, err := sess.Query(ctx, fmt.Sprintf(
		`SELECT customer_id, COUNT(order_id) AS orders
		 FROM %s
		 GROUP BY customer_id
		 ORDER BY orders DESC, customer_id
		 LIMIT %d`, engine.QuoteIdent(schema.TableOrdersClean), limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CustomerOrders
	for rows.Next() {
		var c CustomerOrders
		if err := rows.Scan(&c.CustomerID, &c.Orders); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

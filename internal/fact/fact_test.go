package fact

import (
	"context"
	"fmt"
	"testing"

	"retailetl/internal/clean"
	"retailetl/internal/engine"
	_ "retailetl/internal/engine/sqlite"
	"retailetl/internal/testfix"
)

func buildFixture(t *testing.T) (context.Context, engine.Session, int64, []string) {
	t.Helper()
	ctx := context.Background()
	sess, err := engine.New(ctx, engine.Config{
		Kind: "sqlite",
		DSN:  fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { sess.Close() })

	testfix.Stage(t, ctx, sess)
	if _, err := clean.Run(ctx, sess); err != nil {
		t.Fatalf("clean: %v", err)
	}
	rows, cols, err := Build(ctx, sess)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ctx, sess, rows, cols
}

func TestBuildCardinality(t *testing.T) {
	_, _, rows, _ := buildFixture(t)

	// Order A fans out over its two payments; item E has no matching order
	// and is dropped; B, C, D contribute one row each.
	if rows != testfix.FactRows {
		t.Fatalf("fact rows = %d, want %d", rows, testfix.FactRows)
	}
}

func TestBuildColumnUnion(t *testing.T) {
	_, _, _, cols := buildFixture(t)

	have := map[string]bool{}
	for _, c := range cols {
		if have[c] {
			t.Errorf("column %s appears twice", c)
		}
		have[c] = true
	}
	for _, want := range []string{
		"order_id", "order_item_id", "product_id", "seller_id",
		"price", "freight_value", "order_status",
		"product_category_name", "seller_city", "payment_type", "payment_value",
	} {
		if !have[want] {
			t.Errorf("column union missing %s", want)
		}
	}
	if cols[0] != "order_id" {
		t.Errorf("first column = %s, want order_id (driving table order)", cols[0])
	}
}

func TestBuildInnerJoinDropsOrphanItems(t *testing.T) {
	ctx, sess, _, _ := buildFixture(t)

	rows, err := sess.Query(ctx, `SELECT COUNT(*) FROM fact_orders WHERE order_id = 'E'`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("scan: %v", err)
		}
	}
	if n != 0 {
		t.Errorf("orphan item survived inner join: %d rows", n)
	}
}

func TestBuildLeftJoinKeepsUnpaidOrders(t *testing.T) {
	ctx, sess, _, _ := buildFixture(t)

	rows, err := sess.Query(ctx,
		`SELECT payment_type IS NULL, payment_value IS NULL FROM fact_orders WHERE order_id = 'D'`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		found = true
		var typeNull, valueNull bool
		if err := rows.Scan(&typeNull, &valueNull); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if !typeNull || !valueNull {
			t.Errorf("order D payment columns not null: type=%v value=%v", typeNull, valueNull)
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if !found {
		t.Fatal("order D missing from fact despite having an item and an order")
	}
}

func TestBuildJoinKeysComeFromDrivingTable(t *testing.T) {
	ctx, sess, _, _ := buildFixture(t)

	// D's join with payments misses, but its keys must stay populated.
	rows, err := sess.Query(ctx,
		`SELECT order_id, product_id, seller_id FROM fact_orders WHERE order_id = 'D'`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	if !rows.Next() {
		t.Fatal("order D missing from fact")
	}
	var orderID, productID, sellerID string
	if err := rows.Scan(&orderID, &productID, &sellerID); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if orderID != "D" || productID != "P1" || sellerID != "S2" {
		t.Errorf("keys = (%s, %s, %s), want (D, P1, S2)", orderID, productID, sellerID)
	}
}

func TestBuildPaymentFanOut(t *testing.T) {
	ctx, sess, _, _ := buildFixture(t)

	rows, err := sess.Query(ctx,
		`SELECT payment_type FROM fact_orders WHERE order_id = 'A' ORDER BY payment_type`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var pt string
		if err := rows.Scan(&pt); err != nil {
			t.Fatalf("scan: %v", err)
		}
		types = append(types, pt)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(types) != 2 || types[0] != "credit_card" || types[1] != "voucher" {
		t.Errorf("order A payment types = %v, want [credit_card voucher]", types)
	}
}

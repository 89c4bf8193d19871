package sink

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"retailetl/internal/engine"
	"retailetl/internal/schema"
)

// Result describes a completed sink write.
type Result struct {
	// Path is the dataset directory.
	Path string
	// Rows is the number of rows written.
	Rows int64
	// Fingerprint is the order-insensitive content hash of the written rows.
	Fingerprint string
}

// Write streams the fact table's contract columns into a parquet dataset at
// dir, replacing any previous dataset only after the write completes.
func Write(ctx context.Context, sess engine.Session, dir string, batchSize int) (Result, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return Result{}, fmt.Errorf("sink: %w", err)
	}
	tmp := filepath.Join(parent, "."+filepath.Base(dir)+".tmp")
	if err := os.RemoveAll(tmp); err != nil {
		return Result{}, fmt.Errorf("sink: %w", err)
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return Result{}, fmt.Errorf("sink: %w", err)
	}
	defer os.RemoveAll(tmp)

	f, err := os.Create(filepath.Join(tmp, DataFileName))
	if err != nil {
		return Result{}, fmt.Errorf("sink: %w", err)
	}
	defer f.Close()

	var fp Fingerprint
	w := parquet.NewGenericWriter[FactOrderRow](f)
	if err := streamRows(ctx, sess, batchSize, func(batch []FactOrderRow) error {
		if _, err := w.Write(batch); err != nil {
			return err
		}
		for _, r := range batch {
			fp.Add(r)
		}
		return nil
	}); err != nil {
		return Result{}, fmt.Errorf("sink: %w", err)
	}
	if err := w.Close(); err != nil {
		return Result{}, fmt.Errorf("sink: close writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return Result{}, fmt.Errorf("sink: close file: %w", err)
	}

	// Swap the finished dataset into place.
	if err := os.RemoveAll(dir); err != nil {
		return Result{}, fmt.Errorf("sink: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return Result{}, fmt.Errorf("sink: %w", err)
	}

	res := Result{Path: dir, Rows: fp.Rows(), Fingerprint: fp.Sum()}
	log.Printf("sink: wrote %s rows=%d fingerprint=%s", dir, res.Rows, res.Fingerprint)
	return res, nil
}

// streamRows scans the contract projection of the fact table and hands it to
// emit in batches.
func streamRows(ctx context.Context, sess engine.Session, batchSize int, emit func([]FactOrderRow) error) error {
	cols := make([]string, len(schema.FactColumns))
	for i, c := range schema.FactColumns {
		cols[i] = engine.QuoteIdent(c.Name)
	}
	rows, err := sess.Query(ctx, fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(cols, ", "), engine.QuoteIdent(schema.TableFactOrders)))
	if err != nil {
		return err
	}
	defer rows.Close()

	batch := make([]FactOrderRow, 0, batchSize)
	for rows.Next() {
		var r FactOrderRow
		if err := rows.Scan(
			&r.OrderID, &r.OrderItemID, &r.ProductID, &r.SellerID,
			&r.Price, &r.FreightValue, &r.ProductCategoryName,
			&r.PaymentType, &r.PaymentValue,
		); err != nil {
			return err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := emit(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return emit(batch)
	}
	return nil
}

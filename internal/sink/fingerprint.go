package sink

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// Fingerprint accumulates an order-insensitive content hash over rows. Each
// row hashes independently and the digests combine with wrapping addition,
// so two datasets with the same rows in any order fingerprint identically.
type Fingerprint struct {
	sum  uint64
	rows int64
}

// Add folds one row into the fingerprint.
func (f *Fingerprint) Add(r FactOrderRow) {
	f.sum += xxh3.HashString(r.canonical())
	f.rows++
}

// Rows returns the number of rows folded in.
func (f *Fingerprint) Rows() int64 { return f.rows }

// Sum returns the digest as a fixed-width hex string.
func (f *Fingerprint) Sum() string {
	s := strconv.FormatUint(f.sum, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// ReadAll loads every row of the dataset at dir back into memory. It reads
// the written file independently of the engine, so a validation pass sees
// exactly what a downstream consumer would.
func ReadAll(dir string) ([]FactOrderRow, error) {
	path := filepath.Join(dir, DataFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sink: open dataset: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("sink: stat dataset: %w", err)
	}
	pqFile, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("sink: open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[FactOrderRow](pqFile)
	defer reader.Close()

	var out []FactOrderRow
	buf := make([]FactOrderRow, 256)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("sink: read rows: %w", err)
		}
	}
	return out, nil
}

package lake

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/barrage-archive/barrage/types"
)

// EncodeRows serializes rows into a parquet object. An empty slice encodes
// to a valid schema-only file, which is what partition placeholders hold.
func EncodeRows(rows []types.Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, fmt.Errorf("lake: encode rows: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRows deserializes a parquet object back into rows.
func DecodeRows(data []byte) ([]types.Row, error) {
	rows, err := parquet.Read[types.Row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("lake: decode rows: %w", err)
	}
	return rows, nil
}

package store

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
)

// Supported table encodings
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Gateway is the object store contract consumed by the pipeline core.
//
// ReadTable fails with a NOT_FOUND application error when the key does
// not exist and a DECODE error when the object is not parseable as the
// expected tabular encoding; WriteTable fails with a FORMAT error for an
// unsupported format. Writing an empty table is a no-op and returns
// (false, nil) instead of touching the store.
type Gateway interface {
	List(ctx context.Context, prefix string) ([]string, error)
	ReadTable(ctx context.Context, key string) (*Table, error)
	WriteTable(ctx context.Context, t *Table, key, format string) (bool, error)
}

// encodeTable serializes a table in the requested format, failing with a
// FORMAT error for anything but the supported encodings
func encodeTable(t *Table, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return EncodeCSV(t)
	case FormatParquet:
		return EncodeParquet(t)
	default:
		return nil, apperrors.NewFormatError(fmt.Sprintf("file format %q is not supported", format), nil)
	}
}

// decodeTable parses object data by key suffix: ".parquet" keys as
// Parquet, everything else as CSV
func decodeTable(data []byte, key string) (*Table, error) {
	if strings.HasSuffix(key, ".parquet") {
		return DecodeParquet(data)
	}
	return DecodeCSV(data)
}

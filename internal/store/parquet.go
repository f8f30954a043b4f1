package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
)

// EncodeParquet serializes a table as a Parquet file. Every column is
// written as a UTF8 column; cell values round-trip unchanged through
// DecodeParquet.
func EncodeParquet(t *Table) ([]byte, error) {
	fields := make([]arrow.Field, len(t.Columns))
	for i, c := range t.Columns {
		fields[i] = arrow.Field{Name: c, Type: arrow.BinaryTypes.String}
	}
	schema := arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for _, row := range t.Rows {
		for i, cell := range row {
			builder.Field(i).(*array.StringBuilder).Append(cell)
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	arrowTable := array.NewTableFromRecords(schema, []arrow.Record{record})
	defer arrowTable.Release()

	chunkSize := arrowTable.NumRows()
	if chunkSize == 0 {
		chunkSize = 1
	}

	var buf bytes.Buffer
	err := pqarrow.WriteTable(arrowTable, &buf, chunkSize,
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to write parquet", err)
	}

	return buf.Bytes(), nil
}

// DecodeParquet parses Parquet data written by EncodeParquet back into a
// table. Columns with non-UTF8 physical types are a decode error.
func DecodeParquet(data []byte) (*Table, error) {
	reader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to open parquet", err)
	}
	defer reader.Close()

	fileReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to read parquet schema", err)
	}

	arrowTable, err := fileReader.ReadTable(context.Background())
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to read parquet table", err)
	}
	defer arrowTable.Release()

	columns := make([]string, arrowTable.NumCols())
	for i := range columns {
		columns[i] = arrowTable.Schema().Field(i).Name
	}

	t := NewTable(columns...)
	t.Rows = make([][]string, arrowTable.NumRows())
	for i := range t.Rows {
		t.Rows[i] = make([]string, len(columns))
	}

	for col := 0; col < int(arrowTable.NumCols()); col++ {
		row := 0
		for _, chunk := range arrowTable.Column(col).Data().Chunks() {
			strs, ok := chunk.(*array.String)
			if !ok {
				return nil, apperrors.NewDecodeError(
					fmt.Sprintf("parquet column %q is not a string column", columns[col]), nil)
			}
			for j := 0; j < strs.Len(); j++ {
				if !strs.IsNull(j) {
					t.Rows[row][col] = strs.Value(j)
				}
				row++
			}
		}
	}

	return t, nil
}

package store

import (
	"bytes"
	"encoding/csv"
	"io"

	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
)

// EncodeCSV serializes a table as CSV with the column names as header row
func EncodeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Columns); err != nil {
		return nil, apperrors.NewDecodeError("failed to write csv header", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, apperrors.NewDecodeError("failed to write csv row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, apperrors.NewDecodeError("failed to flush csv", err)
	}

	return buf.Bytes(), nil
}

// DecodeCSV parses CSV data into a table. The first record is the column
// header; ragged records are a decode error. Empty input yields an empty
// table.
func DecodeCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to read csv header", err)
	}

	t := NewTable(header...)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewDecodeError("failed to read csv row", err)
		}
		t.Rows = append(t.Rows, record)
	}

	return t, nil
}

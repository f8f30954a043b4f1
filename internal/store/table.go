package store

import (
	"fmt"

	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
)

// Table is an ordered set of named string columns with one string cell
// per row and column. An empty cell represents a missing value. Typing is
// performed at the point of use so passthrough columns survive untouched.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable creates an empty table with the given column names
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Empty reports whether the table carries no rows
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// ColumnIndex returns the position of the named column, or -1 when the
// table has no such column
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds one row. The caller is responsible for matching the
// column count.
func (t *Table) AppendRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Concat appends the rows of other, aligning cells by column name. A
// table without columns adopts the other table's column set first. A
// column present here but absent in other is a schema error.
func (t *Table) Concat(other *Table) error {
	if other.Empty() {
		return nil
	}
	if len(t.Columns) == 0 {
		t.Columns = append([]string(nil), other.Columns...)
	}

	mapping := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		idx := other.ColumnIndex(c)
		if idx < 0 {
			return apperrors.NewSchemaError(fmt.Sprintf("column %q missing from concatenated table", c), nil)
		}
		mapping[i] = idx
	}

	for _, row := range other.Rows {
		cells := make([]string, len(t.Columns))
		for i, idx := range mapping {
			cells[i] = row[idx]
		}
		t.Rows = append(t.Rows, cells)
	}

	return nil
}

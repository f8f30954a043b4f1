package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
)

func TestTable_Empty(t *testing.T) {
	var nilTable *Table
	assert.True(t, nilTable.Empty())
	assert.True(t, NewTable("a", "b").Empty())

	tbl := NewTable("a", "b")
	tbl.AppendRow("1", "2")
	assert.False(t, tbl.Empty())
}

func TestTable_ColumnIndex(t *testing.T) {
	tbl := NewTable("isin", "date", "price")

	assert.Equal(t, 0, tbl.ColumnIndex("isin"))
	assert.Equal(t, 2, tbl.ColumnIndex("price"))
	assert.Equal(t, -1, tbl.ColumnIndex("volume"))
}

func TestTable_Concat(t *testing.T) {
	dst := NewTable("a", "b")
	dst.AppendRow("1", "2")

	src := NewTable("b", "a")
	src.AppendRow("4", "3")

	require.NoError(t, dst.Concat(src))

	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, dst.Rows)
}

func TestTable_Concat_AdoptsColumns(t *testing.T) {
	dst := &Table{}

	src := NewTable("a", "b")
	src.AppendRow("1", "2")

	require.NoError(t, dst.Concat(src))
	assert.Equal(t, []string{"a", "b"}, dst.Columns)
	assert.Equal(t, [][]string{{"1", "2"}}, dst.Rows)
}

func TestTable_Concat_MissingColumn(t *testing.T) {
	dst := NewTable("a", "b")
	dst.AppendRow("1", "2")

	src := NewTable("a")
	src.AppendRow("3")

	err := dst.Concat(src)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestTable_Concat_EmptyOther(t *testing.T) {
	dst := NewTable("a")
	dst.AppendRow("1")

	require.NoError(t, dst.Concat(NewTable("unrelated")))
	assert.Len(t, dst.Rows, 1)
}

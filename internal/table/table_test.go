package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, columns []string, rows ...[]Cell) *Table {
	t.Helper()
	tbl, err := New(columns)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, tbl.Append(row))
	}
	return tbl
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		errMsg  string
	}{
		{name: "valid", columns: []string{"id", "price", "last_review"}},
		{name: "no columns", columns: nil},
		{name: "duplicate", columns: []string{"id", "id"}, errMsg: `duplicate column "id"`},
		{name: "empty name", columns: []string{"id", " "}, errMsg: "column 2 has an empty name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := New(tt.columns)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.columns), len(tbl.Columns()))
			assert.Equal(t, 0, tbl.Len())
		})
	}
}

func TestTable_Append(t *testing.T) {
	tbl := mustTable(t, []string{"id", "price"})

	require.NoError(t, tbl.Append([]Cell{Text("1"), Text("50")}))
	err := tbl.Append([]Cell{Text("2")})
	assert.EqualError(t, err, "row has 1 cells, table has 2 columns")
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_ColumnsIsACopy(t *testing.T) {
	tbl := mustTable(t, []string{"id", "price"})
	cols := tbl.Columns()
	cols[0] = "changed"
	assert.Equal(t, []string{"id", "price"}, tbl.Columns())
}

func TestTable_Require(t *testing.T) {
	tbl := mustTable(t, []string{"id", "price"})

	assert.NoError(t, tbl.Require("id", "price"))

	err := tbl.Require("price", "last_review", "host_id")
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "last_review, host_id")
}

func TestTable_Filter(t *testing.T) {
	tbl := mustTable(t, []string{"id"},
		[]Cell{Text("a")},
		[]Cell{Text("b")},
		[]Cell{Text("c")},
		[]Cell{Text("d")},
	)

	odd := tbl.Filter(func(i int) bool { return i%2 == 1 })
	require.Equal(t, 2, odd.Len())
	assert.Equal(t, "b", odd.Row(0)[0].Value)
	assert.Equal(t, "d", odd.Row(1)[0].Value)
	assert.Equal(t, tbl.Columns(), odd.Columns())
	assert.Equal(t, 4, tbl.Len(), "source table is unchanged")

	none := tbl.Filter(func(int) bool { return false })
	assert.Equal(t, 0, none.Len())
	assert.Equal(t, []string{"id"}, none.Columns())
}

func TestTable_TextColumn(t *testing.T) {
	tbl := mustTable(t, []string{"id", "last_review"},
		[]Cell{Text("1"), Text("2019-05-21")},
		[]Cell{Text("2"), Missing},
	)

	col, err := tbl.Column("last_review")
	require.NoError(t, err)
	assert.Equal(t, "last_review", col.Name())
	assert.Equal(t, Text("2019-05-21"), col.At(0))
	assert.False(t, col.At(1).Valid)

	col.Set(0, Missing)
	assert.False(t, tbl.Row(0)[1].Valid)

	_, err = tbl.Column("price")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestTable_FloatColumn(t *testing.T) {
	tbl := mustTable(t, []string{"price"},
		[]Cell{Text("50")},
		[]Cell{Text(" 120.5 ")},
		[]Cell{Text("1e3")},
		[]Cell{Text("$45")},
		[]Cell{Text("")},
		[]Cell{Missing},
		[]Cell{Text("-7")},
	)

	price, err := tbl.FloatColumn("price")
	require.NoError(t, err)

	tests := []struct {
		row    int
		want   float64
		wantOK bool
	}{
		{row: 0, want: 50, wantOK: true},
		{row: 1, want: 120.5, wantOK: true},
		{row: 2, want: 1000, wantOK: true},
		{row: 3, wantOK: false},
		{row: 4, wantOK: false},
		{row: 5, wantOK: false},
		{row: 6, want: -7, wantOK: true},
	}
	for _, tt := range tests {
		got, ok := price.At(tt.row)
		assert.Equal(t, tt.wantOK, ok, "row %d", tt.row)
		if tt.wantOK {
			assert.InDelta(t, tt.want, got, 1e-9, "row %d", tt.row)
		}
	}

	_, err = tbl.FloatColumn("missing")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

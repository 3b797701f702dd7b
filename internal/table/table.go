// Package table provides an in-memory tabular dataset with named columns and
// nullable text cells, plus a DuckDB-backed engine that reads and writes it
// as delimited files.
package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing column")

// Cell is a single value. A cell with Valid == false is the missing marker:
// it is distinct from an empty string and is written as an empty field.
type Cell struct {
	Value string
	Valid bool
}

// Missing is the explicit "no value" cell.
var Missing = Cell{}

// Text returns a present cell holding s.
func Text(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// Table is an ordered sequence of rows over a fixed set of named columns.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Cell
}

// New creates an empty table with the given columns.
// Column names must be non-empty and unique.
func New(columns []string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
	}

	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, index: index}, nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the cells of row i. The slice is shared with the table.
func (t *Table) Row(i int) []Cell {
	return t.rows[i]
}

// Append adds a row. It must have exactly one cell per column.
func (t *Table) Append(row []Cell) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.columns))
	}
	t.rows = append(t.rows, row)
	return nil
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Require checks that every named column is present.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Filter returns a new table with the rows for which keep returns true,
// in their original order. Rows are shared, not copied.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := &Table{columns: t.columns, index: t.index}
	for i, row := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// Column returns an accessor for a named text column.
func (t *Table) Column(name string) (TextColumn, error) {
	i, ok := t.index[name]
	if !ok {
		return TextColumn{}, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return TextColumn{t: t, pos: i, name: name}, nil
}

// FloatColumn returns an accessor that reads a named column as numbers.
func (t *Table) FloatColumn(name string) (FloatColumn, error) {
	col, err := t.Column(name)
	if err != nil {
		return FloatColumn{}, err
	}
	return FloatColumn{col}, nil
}

// TextColumn reads and writes one column of a table.
type TextColumn struct {
	t    *Table
	pos  int
	name string
}

// Name returns the column name.
func (c TextColumn) Name() string {
	return c.name
}

// At returns the cell of row i.
func (c TextColumn) At(i int) Cell {
	return c.t.rows[i][c.pos]
}

// Set replaces the cell of row i.
func (c TextColumn) Set(i int, cell Cell) {
	c.t.rows[i][c.pos] = cell
}

// FloatColumn reads a column as float64 values.
type FloatColumn struct {
	TextColumn
}

// At returns the numeric value of row i. ok is false when the cell is
// missing or does not hold a number.
func (c FloatColumn) At(i int) (v float64, ok bool) {
	cell := c.TextColumn.At(i)
	if !cell.Valid {
		return 0, false
	}
	s := strings.TrimSpace(cell.Value)
	if s == "" {
		return 0, false
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

package engine

import (
	"msidb/src/dberror"
	"msidb/src/hashindex"

	"github.com/pkg/errors"
)

// newTable lays out a table with the given columns and no rows.
func newTable(name string, defs []ColumnDef, persistent bool) *Table {
	t := &Table{Name: name, Persistent: persistent}
	for i, def := range defs {
		t.columns = append(t.columns, &Column{
			Table:  name,
			Number: i + 1,
			Name:   def.Name,
			Type:   def.Type,
		})
	}
	t.layout()
	return t
}

// layout assigns cell offsets and the row size from the column list.
func (t *Table) layout() {
	offset := 0
	for i, col := range t.columns {
		col.Number = i + 1
		col.Offset = offset
		offset += col.Type.width(longStrBytes)
	}
	t.rowSize = offset
	t.indexes = make([]*hashindex.HashIndex, len(t.columns))
}

// relayout installs a new column list and moves every row's cells to their
// new offsets. Cells of columns that did not exist before start out null.
func (t *Table) relayout(columns []*Column) {
	type move struct{ from, to, n int }

	old := make(map[*Column]int, len(t.columns))
	for _, col := range t.columns {
		old[col] = col.Offset
	}

	t.columns = columns
	t.layout()

	var moves []move
	for _, col := range t.columns {
		if from, ok := old[col]; ok {
			moves = append(moves, move{from: from, to: col.Offset, n: col.Type.width(longStrBytes)})
		}
	}

	for i, row := range t.rows {
		packed := make([]byte, t.rowSize)
		for _, m := range moves {
			copy(packed[m.to:m.to+m.n], row[m.from:m.from+m.n])
		}
		t.rows[i] = packed
	}
}

func (t *Table) RowCount() int {
	return len(t.rows)
}

func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// RowSize returns the in-memory width of one packed row.
func (t *Table) RowSize() int {
	return t.rowSize
}

// Columns returns a copy of the column list.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	for i, col := range t.columns {
		out[i] = Column{Table: col.Table, Number: col.Number, Name: col.Name, Type: col.Type, Offset: col.Offset}
	}
	return out
}

// IsRowPersistent reports whether row survives a commit.
func (t *Table) IsRowPersistent(row int) bool {
	return row >= 0 && row < len(t.persistent) && t.persistent[row]
}

func (t *Table) column(col int) (*Column, error) {
	if col < 1 || col > len(t.columns) {
		return nil, errors.Wrapf(dberror.ErrInvalidParameter, "table %s has no column %d", t.Name, col)
	}
	return t.columns[col-1], nil
}

func (t *Table) findColumn(name string) (*Column, bool) {
	for _, col := range t.columns {
		if col.Name == name {
			return col, true
		}
	}
	return nil, false
}

func (t *Table) hasKey() bool {
	for _, col := range t.columns {
		if col.Type.Key {
			return true
		}
	}
	return false
}

func readInt(data []byte, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v |= uint32(data[i]) << (8 * i)
	}
	return v
}

func writeInt(data []byte, v uint32, n int) {
	for i := 0; i < n; i++ {
		data[i] = byte(v >> (8 * i))
	}
}

// FetchInt returns the packed value of a cell. The column is checked before
// the row, so an out of range column wins over an exhausted row.
func (t *Table) FetchInt(row, col int) (uint32, error) {
	c, err := t.column(col)
	if err != nil {
		return 0, err
	}
	if row < 0 || row >= len(t.rows) {
		return 0, dberror.ErrNoMoreItems
	}

	n := c.Type.width(longStrBytes)
	if n != 2 && n != 3 && n != 4 {
		return 0, errors.Wrapf(dberror.ErrFunctionFailed, "column %s.%s has width %d", t.Name, c.Name, n)
	}
	return readInt(t.rows[row][c.Offset:], n), nil
}

// SetInt stores a packed value and discards the column's index.
func (t *Table) SetInt(row, col int, val uint32) error {
	c, err := t.column(col)
	if err != nil {
		return err
	}
	if row < 0 || row >= len(t.rows) {
		return errors.Wrapf(dberror.ErrInvalidParameter, "table %s has no row %d", t.Name, row)
	}

	n := c.Type.width(longStrBytes)
	if n != 2 && n != 3 && n != 4 {
		return errors.Wrapf(dberror.ErrFunctionFailed, "column %s.%s has width %d", t.Name, c.Name, n)
	}
	writeInt(t.rows[row][c.Offset:], val, n)
	t.indexes[col-1] = nil
	return nil
}

// insertBlankRow opens a zeroed row at position at.
func (t *Table) insertBlankRow(at int, persistent bool) error {
	if at < 0 || at > len(t.rows) {
		return errors.Wrapf(dberror.ErrInvalidParameter, "table %s cannot insert at row %d", t.Name, at)
	}

	t.rows = append(t.rows, nil)
	copy(t.rows[at+1:], t.rows[at:])
	t.rows[at] = make([]byte, t.rowSize)

	t.persistent = append(t.persistent, false)
	copy(t.persistent[at+1:], t.persistent[at:])
	t.persistent[at] = persistent

	t.invalidateIndexes()
	return nil
}

// DeleteRow removes a row and shifts the later ones down.
func (t *Table) DeleteRow(row int) error {
	if row < 0 {
		return errors.Wrapf(dberror.ErrInvalidParameter, "table %s has no row %d", t.Name, row)
	}
	if row >= len(t.rows) {
		return errors.Wrapf(dberror.ErrFunctionFailed, "table %s has only %d rows", t.Name, len(t.rows))
	}

	t.invalidateIndexes()
	t.rows = append(t.rows[:row], t.rows[row+1:]...)
	t.persistent = append(t.persistent[:row], t.persistent[row+1:]...)
	return nil
}

func (t *Table) invalidateIndexes() {
	for i := range t.indexes {
		t.indexes[i] = nil
	}
}

// FindMatchingRows returns the next row whose cell in col packs to val. The
// column's index is built on first use and after any write to the column.
// ErrNoMoreItems ends the enumeration.
func (t *Table) FindMatchingRows(col int, val uint32, cur *Cursor) (int, error) {
	if _, err := t.column(col); err != nil {
		return 0, err
	}

	index := t.indexes[col-1]
	if index == nil {
		index = hashindex.Build(len(t.rows), func(row int) (uint32, error) {
			return t.FetchInt(row, col)
		})
		t.indexes[col-1] = index
	}
	return index.Next(val, cur)
}

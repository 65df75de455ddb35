package engine

import (
	"io"

	"msidb/src/dberror"
	"msidb/src/helpers"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// TableView is the leaf of every query tree. It reads and writes the rows
// of one table.
type TableView struct {
	db    *Database
	table *Table
	name  string
}

// NewTableView opens a view over the named table. The _Streams and
// _Storages names open the virtual views over the container instead.
func NewTableView(db *Database, name string) (View, error) {
	switch name {
	case StreamsTable:
		sv, err := NewStreamsView(db)
		if err != nil {
			return nil, err
		}
		return sv, nil
	case StoragesTable:
		sv, err := NewStoragesView(db)
		if err != nil {
			return nil, err
		}
		return sv, nil
	}

	t, err := db.getTable(name)
	if err != nil {
		return nil, err
	}
	return &TableView{db: db, table: t, name: name}, nil
}

// Table returns the table behind the view.
func (tv *TableView) Table() *Table {
	return tv.table
}

func (tv *TableView) FetchInt(row, col int) (uint32, error) {
	return tv.table.FetchInt(row, col)
}

func (tv *TableView) FetchStream(row, col int) (io.ReadSeeker, error) {
	if _, err := tv.table.column(col); err != nil {
		return nil, err
	}
	if row < 0 || row >= tv.table.RowCount() {
		return nil, dberror.ErrNoMoreItems
	}

	name, err := tv.db.streamName(tv.table, row)
	if err != nil {
		return nil, err
	}
	data, err := tv.db.store.ReadStream(name)
	if err != nil {
		return nil, errors.WithMessagef(err, "error reading stream for %s row %d", tv.name, row)
	}
	return streamReader(data), nil
}

func (tv *TableView) GetRow(row int) (*record.Record, error) {
	return getRow(tv.db, tv, row)
}

// SetRow packs the selected fields of rec into row. Binary fields are
// written after the others so the stream is named by the new key values.
func (tv *TableView) SetRow(row int, rec *record.Record, mask uint32) error {
	t := tv.table
	if rec == nil {
		return errors.Wrap(dberror.ErrInvalidParameter, "nil record")
	}
	if row < 0 || row >= t.RowCount() {
		return errors.Wrapf(dberror.ErrInvalidParameter, "table %s has no row %d", t.Name, row)
	}

	persistent := t.Persistent && t.persistent[row]

	for _, binary := range []bool{false, true} {
		for i, col := range t.columns {
			if mask&(1<<uint(i)) == 0 || (col.Type.Kind == KindBinary) != binary {
				continue
			}

			val, err := tv.packField(row, rec, i+1, col, persistent)
			if err != nil {
				tv.db.trace("SetRow", err, "table", t.Name, "row", row, "col", i+1)
				return err
			}
			if err := t.SetInt(row, i+1, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func (tv *TableView) packField(row int, rec *record.Record, i int, col *Column, persistent bool) (uint32, error) {
	if rec.IsNull(i) {
		return 0, nil
	}

	switch col.Type.Kind {
	case KindBinary:
		stm, err := rec.GetStream(i)
		if err != nil {
			return 0, errors.Wrapf(dberror.ErrFunctionFailed, "field %d of a binary column is not a stream", i)
		}
		data, err := io.ReadAll(stm)
		if err != nil {
			return 0, errors.Wrap(err, "error reading record stream")
		}
		name, err := tv.db.streamName(tv.table, row)
		if err != nil {
			return 0, err
		}
		if err := tv.db.store.WriteStream(name, data); err != nil {
			return 0, errors.WithMessagef(err, "error writing stream %s", name)
		}
		return 1, nil

	case KindString:
		s, ok := fieldString(rec, i)
		if !ok {
			return 0, errors.Wrapf(dberror.ErrFunctionFailed, "field %d is not a string", i)
		}
		return tv.db.strings.Intern(s, persistent)

	case KindInteger:
		v := rec.GetInteger(i)
		if v == record.NullInteger {
			return 0, errors.Wrapf(dberror.ErrFunctionFailed, "field %d is not an integer", i)
		}
		return packInt(col.Type, v)
	}
	return 0, errors.Wrapf(dberror.ErrFunctionFailed, "column %s has unknown type", col.Name)
}

// InsertRow validates rec and inserts it. A negative row inserts at the
// position that keeps the table sorted, or at 0 if every key is null.
// Tables without keys append.
func (tv *TableView) InsertRow(rec *record.Record, row int, temporary bool) error {
	t := tv.table
	if rec == nil {
		return errors.Wrap(dberror.ErrInvalidParameter, "nil record")
	}

	if err := tv.db.validateNew(t, rec); err != nil {
		tv.db.trace("InsertRow", err, "table", t.Name)
		return err
	}

	if row < 0 {
		switch {
		case !t.hasKey():
			row = t.RowCount()
		case tv.db.keysAllNull(t, rec):
			row = 0
		default:
			row = helpers.InsertPosition(t.RowCount(), func(i int) int {
				return tv.db.compareRecord(t, i, rec)
			})
		}
	}

	if err := t.insertBlankRow(row, !temporary); err != nil {
		return err
	}
	if err := tv.SetRow(row, rec, 1<<uint(t.ColumnCount())-1); err != nil {
		t.DeleteRow(row)
		return err
	}

	tv.db.logger.Debugw("Inserted row", "table", t.Name, "row", row, "temporary", temporary)
	return nil
}

// DeleteRow removes a row along with the stream behind its binary cells.
func (tv *TableView) DeleteRow(row int) error {
	if row >= 0 && row < tv.table.RowCount() {
		if err := tv.db.dropRowStream(tv.table, row, nil); err != nil {
			return err
		}
	}
	return tv.table.DeleteRow(row)
}

func (tv *TableView) Execute(params *record.Record) error {
	return nil
}

func (tv *TableView) Close() error {
	return nil
}

func (tv *TableView) GetDimensions() (int, int, error) {
	return tv.table.RowCount(), tv.table.ColumnCount(), nil
}

func (tv *TableView) GetColumnInfo(col int) (ColumnInfo, error) {
	c, err := tv.table.column(col)
	if err != nil {
		return ColumnInfo{}, err
	}
	return ColumnInfo{Name: c.Name, Table: c.Table, Type: c.Type}, nil
}

func (tv *TableView) FindMatchingRows(col int, val uint32, cur *Cursor) (int, error) {
	return tv.table.FindMatchingRows(col, val, cur)
}

func (tv *TableView) Delete() error {
	return nil
}

// AddRef takes a hold on the table and on each of its temporary columns.
func (tv *TableView) AddRef() int {
	for _, col := range tv.table.columns {
		if col.Type.Temporary {
			col.refs.addRef()
		}
	}
	return tv.table.refs.addRef()
}

// Release gives back a hold taken by AddRef. A temporary column whose last
// hold goes away is removed, and a table whose last hold goes away while it
// has no rows is dropped from the catalog.
func (tv *TableView) Release() (int, error) {
	t := tv.table

	for i := len(t.columns) - 1; i >= 0; i-- {
		col := t.columns[i]
		if !col.Type.Temporary {
			continue
		}
		if _, released := col.refs.release(); released {
			if err := tv.db.removeColumn(t, col); err != nil {
				return t.refs.count(), err
			}
		}
	}

	n, released := t.refs.release()
	if released && t.RowCount() == 0 {
		if err := tv.db.forgetTable(t); err != nil {
			return n, err
		}
	}
	return n, nil
}

package engine

import (
	"bytes"
	"io"

	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// View is one operator of a query tree. Rows are numbered from 0 and
// columns from 1. A caller executes a view, pulls rows from it and closes it;
// views that modify the database do their work in Execute.
type View interface {
	// FetchInt returns the packed value of a cell.
	FetchInt(row, col int) (uint32, error)

	// FetchStream returns the contents of a binary cell.
	FetchStream(row, col int) (io.ReadSeeker, error)

	// GetRow unpacks a whole row into a record.
	GetRow(row int) (*record.Record, error)

	// SetRow writes the fields of rec selected by mask, bit i standing for
	// column i+1.
	SetRow(row int, rec *record.Record, mask uint32) error

	// InsertRow adds rec. A negative row lets the view pick the position.
	InsertRow(rec *record.Record, row int, temporary bool) error

	DeleteRow(row int) error

	Execute(params *record.Record) error
	Close() error

	GetDimensions() (rows, cols int, err error)
	GetColumnInfo(col int) (ColumnInfo, error)

	// FindMatchingRows returns the next row after cur whose cell in col
	// packs to val, or ErrNoMoreItems.
	FindMatchingRows(col int, val uint32, cur *Cursor) (int, error)

	// Delete releases the view and its children.
	Delete() error
}

// unsupported provides the operations a view does not implement.
type unsupported struct {
	name string
}

func (u unsupported) fail(op string) error {
	return errors.Wrapf(dberror.ErrFunctionFailed, "%s view does not support %s", u.name, op)
}

func (u unsupported) FetchInt(row, col int) (uint32, error) {
	return 0, u.fail("FetchInt")
}

func (u unsupported) FetchStream(row, col int) (io.ReadSeeker, error) {
	return nil, u.fail("FetchStream")
}

func (u unsupported) GetRow(row int) (*record.Record, error) {
	return nil, u.fail("GetRow")
}

func (u unsupported) SetRow(row int, rec *record.Record, mask uint32) error {
	return u.fail("SetRow")
}

func (u unsupported) InsertRow(rec *record.Record, row int, temporary bool) error {
	return u.fail("InsertRow")
}

func (u unsupported) DeleteRow(row int) error {
	return u.fail("DeleteRow")
}

func (u unsupported) Execute(params *record.Record) error {
	return u.fail("Execute")
}

func (u unsupported) Close() error {
	return u.fail("Close")
}

func (u unsupported) GetDimensions() (int, int, error) {
	return 0, 0, u.fail("GetDimensions")
}

func (u unsupported) GetColumnInfo(col int) (ColumnInfo, error) {
	return ColumnInfo{}, u.fail("GetColumnInfo")
}

func (u unsupported) FindMatchingRows(col int, val uint32, cur *Cursor) (int, error) {
	return 0, u.fail("FindMatchingRows")
}

func (u unsupported) Delete() error {
	return nil
}

// getRow builds a record from row of v. Binary cells are read through
// FetchStream; cells that cannot be fetched are left null.
func getRow(db *Database, v View, row int) (*record.Record, error) {
	rows, cols, err := v.GetDimensions()
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= rows {
		return nil, dberror.ErrNoMoreItems
	}

	rec := record.New(cols)
	for i := 1; i <= cols; i++ {
		info, err := v.GetColumnInfo(i)
		if err != nil {
			return nil, err
		}

		if info.Type.Kind == KindBinary {
			stm, err := v.FetchStream(row, i)
			if err != nil || stm == nil {
				db.logger.Debugw("Failed to fetch stream", "row", row, "col", i, "error", err)
				continue
			}
			if err := rec.SetStream(i, stm); err != nil {
				return nil, err
			}
			continue
		}

		val, err := v.FetchInt(row, i)
		if err != nil {
			db.logger.Debugw("Failed to fetch cell", "row", row, "col", i, "error", err)
			continue
		}
		if val == 0 {
			continue
		}

		switch info.Type.Kind {
		case KindString:
			s, ok := db.strings.Lookup(val)
			if !ok {
				return nil, errors.Wrapf(dberror.ErrInvalidData, "row %d col %d refers to unknown string %d", row, i, val)
			}
			rec.SetString(i, s)
		case KindInteger:
			rec.SetInteger(i, unpackInt(info.Type, val))
		}
	}
	return rec, nil
}

// findColumn resolves a column name, optionally qualified by table, to its
// number in v.
func findColumn(v View, name, table string) (int, error) {
	_, cols, err := v.GetDimensions()
	if err != nil {
		return 0, err
	}
	for i := 1; i <= cols; i++ {
		info, err := v.GetColumnInfo(i)
		if err != nil {
			return 0, err
		}
		if info.Name != name {
			continue
		}
		if table != "" && info.Table != table {
			continue
		}
		return i, nil
	}
	return 0, errors.Wrapf(dberror.ErrInvalidParameter, "no column %q", name)
}

func streamReader(data []byte) io.ReadSeeker {
	return bytes.NewReader(data)
}

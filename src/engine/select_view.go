package engine

import (
	"io"

	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// ColumnRef names a column to select. An empty Column is a placeholder that
// reads as null.
type ColumnRef struct {
	Column string
	Table  string
}

// SelectView projects and reorders the columns of its child.
type SelectView struct {
	db    *Database
	table View

	// cols maps each selected column to a child column; 0 is a placeholder.
	cols []int
}

// NewSelectView resolves columns against child once, up front.
func NewSelectView(db *Database, child View, columns []ColumnRef) (*SelectView, error) {
	sv := &SelectView{db: db, table: child}
	for _, ref := range columns {
		if err := sv.addColumn(ref); err != nil {
			return nil, err
		}
	}
	return sv, nil
}

func (sv *SelectView) addColumn(ref ColumnRef) error {
	if len(sv.cols) >= 32 {
		return errors.Wrap(dberror.ErrFunctionFailed, "too many selected columns")
	}
	n := 0
	if ref.Column != "" {
		var err error
		if n, err = findColumn(sv.table, ref.Column, ref.Table); err != nil {
			return err
		}
	}
	sv.cols = append(sv.cols, n)
	return nil
}

func (sv *SelectView) childColumn(col int) (int, error) {
	if col < 1 || col > len(sv.cols) {
		return 0, errors.Wrapf(dberror.ErrFunctionFailed, "no selected column %d", col)
	}
	return sv.cols[col-1], nil
}

func (sv *SelectView) FetchInt(row, col int) (uint32, error) {
	n, err := sv.childColumn(col)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return sv.table.FetchInt(row, n)
}

func (sv *SelectView) FetchStream(row, col int) (io.ReadSeeker, error) {
	n, err := sv.childColumn(col)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return sv.table.FetchStream(row, n)
}

func (sv *SelectView) GetRow(row int) (*record.Record, error) {
	return getRow(sv.db, sv, row)
}

// SetRow spreads rec over a record as wide as the child so unselected
// columns stay untouched.
func (sv *SelectView) SetRow(row int, rec *record.Record, mask uint32) error {
	if uint64(mask) >= uint64(1)<<uint(len(sv.cols)) {
		return errors.Wrapf(dberror.ErrInvalidParameter, "mask %#x selects missing columns", mask)
	}

	_, childCols, err := sv.table.GetDimensions()
	if err != nil {
		return err
	}

	expanded := record.New(childCols)
	var expandedMask uint32
	for i, n := range sv.cols {
		if mask&(1<<uint(i)) == 0 || n == 0 {
			continue
		}
		if err := rec.CopyField(i+1, expanded, n); err != nil {
			return err
		}
		expandedMask |= 1 << uint(n-1)
	}
	return sv.table.SetRow(row, expanded, expandedMask)
}

// InsertRow rearranges rec into child column order before inserting.
func (sv *SelectView) InsertRow(rec *record.Record, row int, temporary bool) error {
	_, childCols, err := sv.table.GetDimensions()
	if err != nil {
		return err
	}

	out := record.New(childCols)
	for i, n := range sv.cols {
		if err := rec.CopyField(i+1, out, n); err != nil {
			return err
		}
	}
	return sv.table.InsertRow(out, row, temporary)
}

func (sv *SelectView) DeleteRow(row int) error {
	return sv.table.DeleteRow(row)
}

func (sv *SelectView) Execute(params *record.Record) error {
	return sv.table.Execute(params)
}

func (sv *SelectView) Close() error {
	return sv.table.Close()
}

func (sv *SelectView) GetDimensions() (int, int, error) {
	rows, _, err := sv.table.GetDimensions()
	if err != nil {
		return 0, 0, err
	}
	return rows, len(sv.cols), nil
}

func (sv *SelectView) GetColumnInfo(col int) (ColumnInfo, error) {
	n, err := sv.childColumn(col)
	if err != nil {
		return ColumnInfo{}, err
	}
	if n == 0 {
		return ColumnInfo{Type: ColumnType{Kind: KindUnknown}}, nil
	}
	return sv.table.GetColumnInfo(n)
}

func (sv *SelectView) FindMatchingRows(col int, val uint32, cur *Cursor) (int, error) {
	n, err := sv.childColumn(col)
	if err != nil {
		return 0, err
	}
	return sv.table.FindMatchingRows(n, val, cur)
}

func (sv *SelectView) Delete() error {
	return sv.table.Delete()
}

package engine

import (
	"io"
	"sort"

	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// WhereView keeps the rows of its child whose column equals a value. Rows
// are found through the child's hash index.
type WhereView struct {
	db    *Database
	table View
	col   int
	value Value

	// rows maps output rows to child rows; nil until executed.
	rows []int
}

// NewWhereView filters child on column = value. A wildcard value is taken
// from field 1 of the parameters given to Execute.
func NewWhereView(db *Database, child View, column string, value Value) (*WhereView, error) {
	col, err := findColumn(child, column, "")
	if err != nil {
		return nil, errors.Wrapf(dberror.ErrBadQuerySyntax, "where column %q not found", column)
	}
	return &WhereView{db: db, table: child, col: col, value: value}, nil
}

// packed returns the packed form of the filter value. ok is false when no
// row can match, as for a string that was never interned.
func (wv *WhereView) packed(params *record.Record) (uint32, bool, error) {
	info, err := wv.table.GetColumnInfo(wv.col)
	if err != nil {
		return 0, false, err
	}

	v := wv.value
	if v.Kind == ValueWildcard {
		if params == nil || params.IsNull(1) {
			return 0, false, errors.Wrap(dberror.ErrFunctionFailed, "where wildcard without a parameter")
		}
		switch info.Type.Kind {
		case KindString:
			s, _ := fieldString(params, 1)
			v = StringValue(s)
		case KindInteger:
			v = IntValue(params.GetInteger(1))
		}
	}

	switch info.Type.Kind {
	case KindString:
		if v.Kind != ValueString {
			return 0, false, errors.Wrapf(dberror.ErrBadQuerySyntax, "column %s holds strings", info.Name)
		}
		id, err := wv.db.strings.IDOf(v.Str)
		if errors.Is(err, dberror.ErrNotFound) {
			return 0, false, nil
		}
		return id, err == nil, err
	case KindInteger:
		if v.Kind != ValueInteger || v.Int == record.NullInteger {
			return 0, false, errors.Wrapf(dberror.ErrBadQuerySyntax, "column %s holds integers", info.Name)
		}
		val, err := packInt(info.Type, v.Int)
		if err != nil {
			return 0, false, nil
		}
		return val, true, nil
	}
	return 0, false, errors.Wrapf(dberror.ErrBadQuerySyntax, "column %s cannot be compared", info.Name)
}

func (wv *WhereView) Execute(params *record.Record) error {
	if err := wv.table.Execute(params); err != nil {
		return err
	}

	val, ok, err := wv.packed(params)
	if err != nil {
		wv.db.trace("Where", err, "col", wv.col)
		return err
	}

	wv.rows = []int{}
	if !ok {
		return nil
	}

	var cur Cursor
	for {
		row, err := wv.table.FindMatchingRows(wv.col, val, &cur)
		if dberror.IsEnd(err) {
			break
		}
		if err != nil {
			wv.rows = nil
			return err
		}
		wv.rows = append(wv.rows, row)
	}
	sort.Ints(wv.rows)

	wv.db.logger.Debugw("Filtered rows", "col", wv.col, "rows", len(wv.rows))
	return nil
}

func (wv *WhereView) childRow(row int) (int, error) {
	if wv.rows == nil {
		return 0, errors.Wrap(dberror.ErrFunctionFailed, "where view has not been executed")
	}
	if row < 0 || row >= len(wv.rows) {
		return 0, dberror.ErrNoMoreItems
	}
	return wv.rows[row], nil
}

func (wv *WhereView) FetchInt(row, col int) (uint32, error) {
	r, err := wv.childRow(row)
	if err != nil {
		return 0, err
	}
	return wv.table.FetchInt(r, col)
}

func (wv *WhereView) FetchStream(row, col int) (io.ReadSeeker, error) {
	r, err := wv.childRow(row)
	if err != nil {
		return nil, err
	}
	return wv.table.FetchStream(r, col)
}

func (wv *WhereView) GetRow(row int) (*record.Record, error) {
	return getRow(wv.db, wv, row)
}

func (wv *WhereView) SetRow(row int, rec *record.Record, mask uint32) error {
	r, err := wv.childRow(row)
	if err != nil {
		return errors.Wrapf(dberror.ErrInvalidParameter, "where view has no row %d", row)
	}
	return wv.table.SetRow(r, rec, mask)
}

func (wv *WhereView) InsertRow(rec *record.Record, row int, temporary bool) error {
	return errors.Wrap(dberror.ErrFunctionFailed, "cannot insert through a where view")
}

// DeleteRow removes the child row behind row and shifts the later ones.
func (wv *WhereView) DeleteRow(row int) error {
	r, err := wv.childRow(row)
	if err != nil {
		return errors.Wrapf(dberror.ErrFunctionFailed, "where view has no row %d", row)
	}
	if err := wv.table.DeleteRow(r); err != nil {
		return err
	}

	wv.rows = append(wv.rows[:row], wv.rows[row+1:]...)
	for i := range wv.rows {
		if wv.rows[i] > r {
			wv.rows[i]--
		}
	}
	return nil
}

func (wv *WhereView) Close() error {
	wv.rows = nil
	return wv.table.Close()
}

// GetDimensions reports no rows until the view is executed.
func (wv *WhereView) GetDimensions() (int, int, error) {
	_, cols, err := wv.table.GetDimensions()
	if err != nil {
		return 0, 0, err
	}
	return len(wv.rows), cols, nil
}

func (wv *WhereView) GetColumnInfo(col int) (ColumnInfo, error) {
	return wv.table.GetColumnInfo(col)
}

func (wv *WhereView) FindMatchingRows(col int, val uint32, cur *Cursor) (int, error) {
	for {
		r, err := wv.table.FindMatchingRows(col, val, cur)
		if err != nil {
			return 0, err
		}
		for i, row := range wv.rows {
			if row == r {
				return i, nil
			}
		}
	}
}

func (wv *WhereView) Delete() error {
	return wv.table.Delete()
}

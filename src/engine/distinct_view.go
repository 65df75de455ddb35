package engine

import (
	"io"

	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// distinctNode is one level of the duplicate trie: the first row seen with
// this value at this column, how often the value prefix repeated, and the
// children keyed by the next column's value.
type distinctNode struct {
	row   int
	count int
	next  map[uint32]*distinctNode
}

func insertDistinct(set map[uint32]*distinctNode, val uint32, row int) *distinctNode {
	node, ok := set[val]
	if ok {
		node.count++
		return node
	}
	node = &distinctNode{row: row, count: 1}
	set[val] = node
	return node
}

// DistinctView keeps the first occurrence of every distinct row of its
// child, in child order.
type DistinctView struct {
	db    *Database
	table View

	// translation maps output rows to child rows; nil until executed.
	translation []int
	inverse     map[int]int
}

func NewDistinctView(db *Database, child View) (*DistinctView, error) {
	return &DistinctView{db: db, table: child}, nil
}

func (dv *DistinctView) Execute(params *record.Record) error {
	if err := dv.table.Execute(params); err != nil {
		return err
	}

	rows, cols, err := dv.table.GetDimensions()
	if err != nil {
		return err
	}

	root := make(map[uint32]*distinctNode)
	dv.translation = make([]int, 0, rows)
	dv.inverse = make(map[int]int)

	for i := 0; i < rows; i++ {
		set := root
		var node *distinctNode
		for j := 1; j <= cols; j++ {
			val, err := dv.table.FetchInt(i, j)
			if err != nil {
				dv.translation = nil
				return errors.WithMessagef(err, "failed to fetch row %d col %d", i, j)
			}
			node = insertDistinct(set, val, i)
			if j != cols {
				if node.next == nil {
					node.next = make(map[uint32]*distinctNode)
				}
				set = node.next
			}
		}

		if node != nil && node.row == i {
			dv.inverse[i] = len(dv.translation)
			dv.translation = append(dv.translation, i)
		}
	}

	dv.db.logger.Debugw("Distinct rows", "input", rows, "output", len(dv.translation))
	return nil
}

func (dv *DistinctView) childRow(row int) (int, error) {
	if dv.translation == nil {
		return 0, errors.Wrap(dberror.ErrFunctionFailed, "distinct view has not been executed")
	}
	if row < 0 || row >= len(dv.translation) {
		return 0, errors.Wrapf(dberror.ErrInvalidParameter, "distinct view has no row %d", row)
	}
	return dv.translation[row], nil
}

func (dv *DistinctView) FetchInt(row, col int) (uint32, error) {
	r, err := dv.childRow(row)
	if err != nil {
		return 0, err
	}
	return dv.table.FetchInt(r, col)
}

func (dv *DistinctView) FetchStream(row, col int) (io.ReadSeeker, error) {
	r, err := dv.childRow(row)
	if err != nil {
		return nil, err
	}
	return dv.table.FetchStream(r, col)
}

func (dv *DistinctView) GetRow(row int) (*record.Record, error) {
	return getRow(dv.db, dv, row)
}

func (dv *DistinctView) SetRow(row int, rec *record.Record, mask uint32) error {
	return errors.Wrap(dberror.ErrFunctionFailed, "distinct view is read-only")
}

func (dv *DistinctView) InsertRow(rec *record.Record, row int, temporary bool) error {
	return errors.Wrap(dberror.ErrFunctionFailed, "distinct view is read-only")
}

func (dv *DistinctView) DeleteRow(row int) error {
	return errors.Wrap(dberror.ErrFunctionFailed, "distinct view is read-only")
}

func (dv *DistinctView) Close() error {
	dv.translation = nil
	dv.inverse = nil
	return dv.table.Close()
}

// GetDimensions fails before Execute since the row count is not known.
func (dv *DistinctView) GetDimensions() (int, int, error) {
	if dv.translation == nil {
		return 0, 0, errors.Wrap(dberror.ErrFunctionFailed, "distinct view has not been executed")
	}
	_, cols, err := dv.table.GetDimensions()
	if err != nil {
		return 0, 0, err
	}
	return len(dv.translation), cols, nil
}

func (dv *DistinctView) GetColumnInfo(col int) (ColumnInfo, error) {
	return dv.table.GetColumnInfo(col)
}

// FindMatchingRows searches the child and reports only rows that survived
// as first occurrences, translated to output positions.
func (dv *DistinctView) FindMatchingRows(col int, val uint32, cur *Cursor) (int, error) {
	if dv.translation == nil {
		return 0, errors.Wrap(dberror.ErrFunctionFailed, "distinct view has not been executed")
	}
	for {
		r, err := dv.table.FindMatchingRows(col, val, cur)
		if err != nil {
			return 0, err
		}
		if out, ok := dv.inverse[r]; ok {
			return out, nil
		}
	}
}

func (dv *DistinctView) Delete() error {
	return dv.table.Delete()
}

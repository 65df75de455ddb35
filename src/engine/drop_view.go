package engine

import (
	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// DropView removes a table when executed.
type DropView struct {
	unsupported

	db    *Database
	table *TableView
}

func NewDropView(db *Database, name string) (*DropView, error) {
	if isSystemTable(name) {
		return nil, errors.Wrapf(dberror.ErrFunctionFailed, "cannot drop %s", name)
	}
	v, err := NewTableView(db, name)
	if err != nil {
		return nil, err
	}
	return &DropView{
		unsupported: unsupported{name: "drop"},
		db:          db,
		table:       v.(*TableView),
	}, nil
}

// Execute removes the columns last to first, giving back one hold on each.
// A column still held by someone else stays, and then so does the table.
func (dv *DropView) Execute(params *record.Record) error {
	if dv.table == nil {
		return errors.Wrap(dberror.ErrFunctionFailed, "table already dropped")
	}
	if err := dv.table.Execute(params); err != nil {
		return err
	}

	t := dv.table.table
	if !dv.heldElsewhere() {
		for row := range t.rows {
			if err := dv.db.dropRowStream(t, row, nil); err != nil {
				return err
			}
		}
	}

	var held []string
	for i := len(t.columns) - 1; i >= 0; i-- {
		col := t.columns[i]
		if col.refs.count() > 0 {
			col.refs.release()
		}
		if col.refs.count() > 0 {
			held = append(held, col.Name)
			continue
		}
		if err := dv.db.removeColumn(t, col); err != nil {
			dv.db.trace("Drop", err, "table", t.Name, "column", col.Name)
			return err
		}
	}
	if len(held) > 0 {
		return errors.Wrapf(dberror.ErrFunctionFailed, "table %s has held columns %v", t.Name, held)
	}

	if err := dv.db.forgetTable(t); err != nil {
		return err
	}
	dv.table = nil
	return nil
}

// heldElsewhere reports whether some column has a hold besides the one
// the drop gives back.
func (dv *DropView) heldElsewhere() bool {
	for _, col := range dv.table.table.columns {
		if col.refs.count() > 1 {
			return true
		}
	}
	return false
}

func (dv *DropView) Close() error {
	return nil
}

func (dv *DropView) GetDimensions() (int, int, error) {
	return 0, 0, nil
}

package engine

import (
	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// HoldMode says what an ALTER TABLE does to the table's holds.
type HoldMode int

const (
	HoldNone HoldMode = iota
	Hold
	Free
)

// AlterView adds a column to a table or takes or gives back a hold on it.
type AlterView struct {
	unsupported

	db     *Database
	table  *TableView
	column *ColumnDef
	hold   HoldMode
}

// NewAlterView prepares an ALTER TABLE. column may be nil when the
// statement only changes holds.
func NewAlterView(db *Database, name string, column *ColumnDef, hold HoldMode) (*AlterView, error) {
	if !db.TableExists(name) || isSystemTable(name) {
		return nil, errors.Wrapf(dberror.ErrBadQuerySyntax, "cannot alter table %s", name)
	}
	v, err := NewTableView(db, name)
	if err != nil {
		return nil, err
	}

	av := &AlterView{
		unsupported: unsupported{name: "alter"},
		db:          db,
		table:       v.(*TableView),
		hold:        hold,
	}
	if column != nil {
		def := *column
		av.column = &def
	}
	return av, nil
}

func (av *AlterView) Execute(params *record.Record) error {
	if av.table == nil {
		return errors.Wrap(dberror.ErrFunctionFailed, "table is gone")
	}

	switch av.hold {
	case Hold:
		av.table.AddRef()
	case Free:
		n, err := av.table.Release()
		if err != nil {
			av.db.trace("Alter", err, "table", av.table.name)
			return err
		}
		if n == 0 {
			av.table = nil
		}
	}

	if av.column == nil {
		return nil
	}
	if av.table == nil {
		return errors.Wrap(dberror.ErrFunctionFailed, "table was released")
	}

	err := av.db.addColumn(av.table.table, *av.column, av.hold == Hold)
	av.db.trace("Alter", err, "table", av.table.name, "column", av.column.Name)
	return err
}

func (av *AlterView) Close() error {
	return nil
}

func (av *AlterView) GetDimensions() (int, int, error) {
	return 0, 0, nil
}

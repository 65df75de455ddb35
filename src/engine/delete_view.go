package engine

import (
	"msidb/src/record"
)

// DeleteView removes rows from its child when executed. It removes every
// row the child reports; filtering has to happen below it.
type DeleteView struct {
	unsupported

	db    *Database
	table View
}

func NewDeleteView(db *Database, child View) (*DeleteView, error) {
	return &DeleteView{
		unsupported: unsupported{name: "delete"},
		db:          db,
		table:       child,
	}, nil
}

func (dv *DeleteView) Execute(params *record.Record) error {
	if err := dv.table.Execute(params); err != nil {
		return err
	}

	rows, _, err := dv.table.GetDimensions()
	if err != nil {
		return err
	}

	// from the end, so removing a row never shifts one not yet visited
	for i := rows - 1; i >= 0; i-- {
		if err := dv.table.DeleteRow(i); err != nil {
			dv.db.trace("Delete", err, "row", i)
			return err
		}
	}
	dv.db.logger.Debugw("Deleted rows", "rows", rows)
	return nil
}

func (dv *DeleteView) Close() error {
	return dv.table.Close()
}

// GetDimensions reports no rows; a delete produces none.
func (dv *DeleteView) GetDimensions() (int, int, error) {
	_, cols, err := dv.table.GetDimensions()
	if err != nil {
		return 0, 0, err
	}
	return 0, cols, nil
}

func (dv *DeleteView) GetColumnInfo(col int) (ColumnInfo, error) {
	return dv.table.GetColumnInfo(col)
}

func (dv *DeleteView) Delete() error {
	return dv.table.Delete()
}

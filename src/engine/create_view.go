package engine

import (
	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// CreateView creates a table when executed.
type CreateView struct {
	unsupported

	db        *Database
	name      string
	columns   []ColumnDef
	temporary bool
	hold      bool
}

// NewCreateView checks the column list of a new table. A table whose
// columns are all temporary is a temporary table; a temporary key column
// next to persistent columns is rejected.
func NewCreateView(db *Database, table string, columns []ColumnDef, hold bool) (*CreateView, error) {
	if table == "" || len(columns) == 0 {
		return nil, errors.Wrap(dberror.ErrBadQuerySyntax, "table needs a name and columns")
	}
	if len(columns) > maxColumns {
		return nil, errors.Wrapf(dberror.ErrFunctionFailed, "table %s has %d columns, at most %d allowed", table, len(columns), maxColumns)
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if seen[col.Name] {
			return nil, errors.Wrapf(dberror.ErrBadQuerySyntax, "column %s declared twice", col.Name)
		}
		seen[col.Name] = true
	}

	temp, tempKey := true, false
	for _, col := range columns {
		if !col.Type.Temporary {
			temp = false
		} else if col.Type.Key {
			tempKey = true
		}
	}
	if !temp && tempKey {
		return nil, errors.Wrapf(dberror.ErrFunctionFailed, "table %s mixes a temporary key with persistent columns", table)
	}

	return &CreateView{
		unsupported: unsupported{name: "create"},
		db:          db,
		name:        table,
		columns:     append([]ColumnDef{}, columns...),
		temporary:   temp,
		hold:        hold,
	}, nil
}

// Execute creates the table. A temporary table that nobody holds would be
// gone at once, so creating one does nothing.
func (cv *CreateView) Execute(params *record.Record) error {
	if cv.temporary && !cv.hold {
		return nil
	}
	err := cv.db.createTable(cv.name, cv.columns, !cv.temporary, cv.hold)
	cv.db.trace("Create", err, "table", cv.name)
	return err
}

func (cv *CreateView) Close() error {
	return nil
}

func (cv *CreateView) GetDimensions() (int, int, error) {
	return 0, 0, nil
}

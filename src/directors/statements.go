package directors

import (
	"msidb/src/dberror"
	"msidb/src/engine"

	"github.com/pkg/errors"
)

// Statement is an already decomposed query. Each statement knows how to
// assemble the view tree that runs it.
type Statement interface {
	buildView(db *engine.Database) (engine.View, error)
}

// Select reads rows of a table. No columns means every column.
type Select struct {
	Table    string
	Columns  []engine.ColumnRef
	Distinct bool

	// Where optionally keeps only the rows whose column equals a value.
	Where *Condition
}

// Condition is a single column = value test.
type Condition struct {
	Column string
	Value  engine.Value
}

// Insert adds one row per Execute. Wildcard values are filled from the
// parameter record.
type Insert struct {
	Table     string
	Columns   []engine.ColumnRef
	Values    []engine.Value
	Temporary bool
}

// Delete removes the rows of a table, or only those matching Where.
type Delete struct {
	Table string
	Where *Condition
}

type CreateTable struct {
	Table   string
	Columns []engine.ColumnDef
	Hold    bool
}

type DropTable struct {
	Table string
}

// AlterTable adds a column and/or takes or gives back a hold.
type AlterTable struct {
	Table string
	Add   *engine.ColumnDef
	Hold  engine.HoldMode
}

func (s *Select) buildView(db *engine.Database) (engine.View, error) {
	if s.Table == "" {
		return nil, errors.Wrap(dberror.ErrBadQuerySyntax, "select without a table")
	}

	view, err := engine.NewTableView(db, s.Table)
	if err != nil {
		return nil, err
	}

	if s.Where != nil {
		wv, err := engine.NewWhereView(db, view, s.Where.Column, s.Where.Value)
		if err != nil {
			view.Delete()
			return nil, err
		}
		view = wv
	}

	if len(s.Columns) > 0 {
		sv, err := engine.NewSelectView(db, view, s.Columns)
		if err != nil {
			view.Delete()
			return nil, err
		}
		view = sv
	}

	if s.Distinct {
		dv, err := engine.NewDistinctView(db, view)
		if err != nil {
			view.Delete()
			return nil, err
		}
		view = dv
	}
	return view, nil
}

func (s *Insert) buildView(db *engine.Database) (engine.View, error) {
	return engine.NewInsertView(db, s.Table, s.Columns, s.Values, s.Temporary)
}

func (s *Delete) buildView(db *engine.Database) (engine.View, error) {
	view, err := engine.NewTableView(db, s.Table)
	if err != nil {
		return nil, err
	}
	if s.Where != nil {
		wv, err := engine.NewWhereView(db, view, s.Where.Column, s.Where.Value)
		if err != nil {
			view.Delete()
			return nil, err
		}
		view = wv
	}
	dv, err := engine.NewDeleteView(db, view)
	if err != nil {
		view.Delete()
		return nil, err
	}
	return dv, nil
}

func (s *CreateTable) buildView(db *engine.Database) (engine.View, error) {
	return engine.NewCreateView(db, s.Table, s.Columns, s.Hold)
}

func (s *DropTable) buildView(db *engine.Database) (engine.View, error) {
	return engine.NewDropView(db, s.Table)
}

func (s *AlterTable) buildView(db *engine.Database) (engine.View, error) {
	return engine.NewAlterView(db, s.Table, s.Add, s.Hold)
}

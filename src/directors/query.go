package directors

import (
	"msidb/src/dberror"
	"msidb/src/engine"
	"msidb/src/record"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Query runs one statement: Execute it, Fetch its rows, Close it.
type Query struct {
	db       *engine.Database
	view     engine.View
	row      int
	executed bool
	logger   *zap.SugaredLogger
}

// Open builds the view tree for stmt.
func Open(db *engine.Database, stmt Statement, logger *zap.SugaredLogger) (*Query, error) {
	if db == nil || stmt == nil {
		return nil, errors.Wrap(dberror.ErrInvalidParameter, "nil database or statement")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	view, err := stmt.buildView(db)
	if err != nil {
		logger.Debugw("Failed to build query", "statement", stmt, "error", err)
		return nil, err
	}
	return &Query{db: db, view: view, logger: logger}, nil
}

// Execute runs the statement. Fetching restarts from the first row.
func (q *Query) Execute(params *record.Record) error {
	if q.view == nil {
		return errors.Wrap(dberror.ErrFunctionFailed, "query is closed")
	}
	if err := q.view.Execute(params); err != nil {
		return err
	}
	q.executed = true
	q.row = 0
	return nil
}

// Fetch returns the next row. dberror.ErrNoMoreItems marks the end.
func (q *Query) Fetch() (*record.Record, error) {
	if !q.executed {
		return nil, errors.Wrap(dberror.ErrFunctionFailed, "query has not been executed")
	}

	rec, err := q.view.GetRow(q.row)
	if err != nil {
		return nil, err
	}
	q.row++
	return rec, nil
}

// FetchAll returns every remaining row.
func (q *Query) FetchAll() ([]*record.Record, error) {
	var rows []*record.Record
	for {
		rec, err := q.Fetch()
		if dberror.IsEnd(err) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, rec)
	}
}

// Columns describes the columns the query returns.
func (q *Query) Columns() ([]engine.ColumnInfo, error) {
	if q.view == nil {
		return nil, errors.Wrap(dberror.ErrFunctionFailed, "query is closed")
	}
	_, cols, err := q.view.GetDimensions()
	if err != nil {
		return nil, err
	}
	infos := make([]engine.ColumnInfo, 0, cols)
	for i := 1; i <= cols; i++ {
		info, err := q.view.GetColumnInfo(i)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Close releases the view tree. A closed query cannot be executed again.
func (q *Query) Close() error {
	if q.view == nil {
		return nil
	}
	err := q.view.Close()
	if derr := q.view.Delete(); err == nil {
		err = derr
	}
	q.view = nil
	q.executed = false
	return err
}

package directors

import (
	"msidb/src/engine"
	"msidb/src/record"

	"go.uber.org/zap"
)

// CommandResponse is the outcome of one statement.
type CommandResponse struct {
	ResultCount int                 `json:"resultCount"`
	Columns     []engine.ColumnInfo `json:"columns,omitempty"`
	Result      []*record.Record    `json:"-"`
}

// CommandDirector runs stmt to completion and collects whatever rows it
// produces. Statements that change the database produce none.
func CommandDirector(db *engine.Database, stmt Statement, params *record.Record, logger *zap.SugaredLogger) (*CommandResponse, error) {
	q, err := Open(db, stmt, logger)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	if err := q.Execute(params); err != nil {
		q.logger.Debugw("Statement failed", "statement", stmt, "error", err)
		return nil, err
	}

	response := &CommandResponse{}
	if _, ok := stmt.(*Select); !ok {
		return response, nil
	}

	if response.Columns, err = q.Columns(); err != nil {
		return nil, err
	}
	if response.Result, err = q.FetchAll(); err != nil {
		return nil, err
	}
	response.ResultCount = len(response.Result)
	return response, nil
}

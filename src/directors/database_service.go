package directors

import (
	"msidb/src/container"
	"msidb/src/dberror"
	"msidb/src/engine"
	"msidb/src/record"
	"msidb/src/settings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DatabaseService owns the container file and the database opened on it.
type DatabaseService struct {
	store    *container.FileStore
	db       *engine.Database
	settings *settings.Arguments
	logger   *zap.SugaredLogger
}

// NewDatabaseService opens the database file named by the settings. With
// create set a new, empty container replaces whatever is there.
func NewDatabaseService(args *settings.Arguments, create bool, logger *zap.SugaredLogger) (*DatabaseService, error) {
	if args == nil || args.DataFile == "" {
		return nil, errors.Wrap(dberror.ErrInvalidParameter, "no database file given")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	mode := container.ModeTransact
	switch {
	case create:
		mode = container.ModeCreate
	case args.ReadOnly:
		mode = container.ModeReadOnly
	}

	store, err := container.OpenFileStore(args.DataFile, mode, logger)
	if err != nil {
		return nil, err
	}

	db, err := engine.Open(store, engine.Options{
		Logger:   logger,
		CodePage: args.CodePage,
		Debug:    args.Debug,
	})
	if err != nil {
		store.Close()
		return nil, errors.WithMessagef(err, "error opening database %s", args.DataFile)
	}

	logger.Infow("Database service ready", "file", args.DataFile, "readOnly", mode == container.ModeReadOnly)
	return &DatabaseService{store: store, db: db, settings: args, logger: logger}, nil
}

func (s *DatabaseService) Database() *engine.Database {
	return s.db
}

// Run executes one statement against the database.
func (s *DatabaseService) Run(stmt Statement, params *record.Record) (*CommandResponse, error) {
	return CommandDirector(s.db, stmt, params, s.logger)
}

// Commit writes the database into the container and the container to disk.
func (s *DatabaseService) Commit() error {
	if s.settings.ReadOnly {
		return errors.Wrap(dberror.ErrFunctionFailed, "database is open read-only")
	}
	if err := s.db.Commit(); err != nil {
		return err
	}
	return s.store.Commit()
}

// Close releases the container. Uncommitted changes are lost.
func (s *DatabaseService) Close() error {
	return s.store.Close()
}

package engine

import (
	"msidb/src/container"
	"msidb/src/dberror"
	"msidb/src/helpers"
	"msidb/src/stringpool"

	"github.com/google/btree"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const catalogDegree = 8

// Open attaches a database to store. A store without a string pool stream
// holds no database yet and yields an empty one with just the system
// tables; Commit writes it out.
func Open(store container.BlobStore, opts Options) (*Database, error) {
	if store == nil {
		return nil, errors.Wrap(dberror.ErrInvalidParameter, "nil store")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db := &Database{
		DatabaseID: helpers.GenerateUUID(),
		store:      store,
		tables:     btree.NewG(catalogDegree, tableLess),
		logger:     logger,
		debug:      opts.Debug,
	}

	tables := newTable(TablesTable, tablesColumns, true)
	columns := newTable(ColumnsTable, columnsColumns, true)
	db.tables.ReplaceOrInsert(tables)
	db.tables.ReplaceOrInsert(columns)

	data, err := store.ReadStream(stringPoolStream)
	if errors.Is(err, dberror.ErrNotFound) {
		db.strings = stringpool.New(opts.CodePage)
		logger.Infow("Initialized empty database", "id", db.DatabaseID, "codePage", opts.CodePage)
		return db, nil
	}
	if err != nil {
		return nil, errors.WithMessage(err, "error reading string pool")
	}

	if db.strings, err = stringpool.Load(data); err != nil {
		return nil, err
	}
	if err := db.loadRows(tables); err != nil {
		return nil, err
	}
	if err := db.loadRows(columns); err != nil {
		return nil, err
	}

	logger.Infow("Opened database", "id", db.DatabaseID, "tables", tables.RowCount(), "strings", db.strings.Len())
	return db, nil
}

// CreateTable is a shorthand for executing a CreateView.
func (db *Database) CreateTable(name string, defs []ColumnDef, hold bool) error {
	v, err := NewCreateView(db, name, defs, hold)
	if err != nil {
		return err
	}
	defer v.Delete()
	return v.Execute(nil)
}

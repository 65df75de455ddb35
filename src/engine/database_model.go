package engine

import (
	"msidb/src/container"
	"msidb/src/dberror"
	"msidb/src/stringpool"

	"github.com/google/btree"
	"go.uber.org/zap"
)

// Database owns the table catalog and the string pool of one container.
// It is not safe for concurrent use.
type Database struct {
	// DatabaseID identifies this open instance in logs.
	DatabaseID string

	store   container.BlobStore
	strings *stringpool.StringPool

	// tables holds every table loaded or created in this session, ordered
	// by name. Persisted tables are loaded on first use.
	tables *btree.BTreeG[*Table]

	logger *zap.SugaredLogger
	debug  bool
}

// Options configure Open.
type Options struct {
	Logger *zap.SugaredLogger

	// CodePage is recorded in the string pool of a new database.
	CodePage int

	// Debug logs every failing view operation.
	Debug bool
}

func tableLess(a, b *Table) bool {
	return a.Name < b.Name
}

// Strings returns the string pool.
func (db *Database) Strings() *stringpool.StringPool {
	return db.strings
}

// Store returns the container the database lives in.
func (db *Database) Store() container.BlobStore {
	return db.store
}

// trace logs a failed operation when debugging is on. The end of an
// enumeration is not a failure.
func (db *Database) trace(op string, err error, keysAndValues ...interface{}) {
	if !db.debug || err == nil || dberror.IsEnd(err) {
		return
	}
	keysAndValues = append(keysAndValues, "op", op, "kind", dberror.KindOf(err).String(), "error", err)
	db.logger.Debugw("View operation failed", keysAndValues...)
}

package engine

import (
	"strings"

	"msidb/src/dberror"

	"github.com/pkg/errors"
)

// Streams owned by the database carry a reserved prefix so they never clash
// with streams backing binary cells, and so _Streams can hide them.
const (
	reservedPrefix   = "\u4840"
	stringPoolStream = reservedPrefix + "_StringPool"
)

func tableStreamName(table string) string {
	return reservedPrefix + table
}

func isReservedStream(name string) bool {
	return strings.HasPrefix(name, reservedPrefix)
}

// persistedColumns returns the columns written to disk.
func persistedColumns(t *Table) []*Column {
	var cols []*Column
	for _, col := range t.columns {
		if !col.Type.Temporary {
			cols = append(cols, col)
		}
	}
	return cols
}

// encodeRows writes the persistent rows of t column by column: all cells of
// the first column, then all cells of the second, each at its on-disk width.
func encodeRows(t *Table, strBytes int) ([]byte, error) {
	cols := persistedColumns(t)

	count := 0
	for _, p := range t.persistent {
		if p {
			count++
		}
	}

	rowSize := 0
	for _, col := range cols {
		rowSize += col.Type.width(strBytes)
	}
	out := make([]byte, count*rowSize)

	ofs := 0
	for _, col := range cols {
		n := col.Type.width(strBytes)
		m := col.Type.width(longStrBytes)

		i := 0
		for row, packed := range t.rows {
			if !t.persistent[row] {
				continue
			}
			val := readInt(packed[col.Offset:], m)
			if n < m && val>>(8*uint(n)) != 0 {
				return nil, errors.Wrapf(dberror.ErrFunctionFailed, "value %d of %s.%s does not fit %d bytes", val, t.Name, col.Name, n)
			}
			writeInt(out[ofs*count+i*n:], val, n)
			i++
		}
		ofs += n
	}
	return out, nil
}

// decodeRows fills t from the output of encodeRows. Every loaded row is
// persistent.
func decodeRows(t *Table, data []byte, strBytes int) error {
	rowSize := 0
	for _, col := range t.columns {
		rowSize += col.Type.width(strBytes)
	}
	if rowSize == 0 {
		return errors.Wrapf(dberror.ErrInvalidData, "table %s has no storable columns", t.Name)
	}
	if len(data)%rowSize != 0 {
		return errors.Wrapf(dberror.ErrInvalidData, "table %s data size %d is not a multiple of row size %d", t.Name, len(data), rowSize)
	}

	count := len(data) / rowSize
	t.rows = make([][]byte, count)
	t.persistent = make([]bool, count)
	for i := range t.rows {
		t.rows[i] = make([]byte, t.rowSize)
		t.persistent[i] = true
	}

	ofs := 0
	for _, col := range t.columns {
		n := col.Type.width(strBytes)
		m := col.Type.width(longStrBytes)
		if n != 2 && n != 3 && n != 4 {
			return errors.Wrapf(dberror.ErrInvalidData, "column %s.%s has width %d", t.Name, col.Name, n)
		}
		for i := 0; i < count; i++ {
			writeInt(t.rows[i][col.Offset:], readInt(data[ofs*count+i*n:], n), m)
		}
		ofs += n
	}
	t.invalidateIndexes()
	return nil
}

func (db *Database) strBytes() int {
	if db.strings.LongRefs() {
		return longStrBytes
	}
	return shortStrBytes
}

// loadTable builds a listed table from _Columns and its data stream.
func (db *Database) loadTable(name string) (*Table, error) {
	defs, err := db.tableColumns(name)
	if err != nil {
		return nil, err
	}
	t := newTable(name, defs, true)
	if err := db.loadRows(t); err != nil {
		return nil, err
	}
	db.logger.Debugw("Loaded table", "table", name, "rows", t.RowCount())
	return t, nil
}

func (db *Database) loadRows(t *Table) error {
	data, err := db.store.ReadStream(tableStreamName(t.Name))
	if errors.Is(err, dberror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.WithMessagef(err, "error reading table %s", t.Name)
	}
	return decodeRows(t, data, db.strBytes())
}

// Commit writes the string pool and every persistent table to the
// container. Only persistent rows and non-temporary columns are written.
func (db *Database) Commit() error {
	// every listed table is rewritten, since the string reference width
	// may change
	for _, name := range db.TableNames() {
		if _, err := db.getTable(name); err != nil {
			return err
		}
	}

	referenced := make(map[uint32]struct{})
	db.tables.Ascend(func(t *Table) bool {
		if !t.Persistent {
			return true
		}
		for _, col := range persistedColumns(t) {
			if col.Type.Kind != KindString {
				continue
			}
			for row, packed := range t.rows {
				if t.persistent[row] {
					referenced[readInt(packed[col.Offset:], longStrBytes)] = struct{}{}
				}
			}
		}
		return true
	})

	pool, longRefs, err := db.strings.Save(func(id uint32) bool {
		_, ok := referenced[id]
		return ok
	})
	if err != nil {
		return err
	}
	if err := db.store.WriteStream(stringPoolStream, pool); err != nil {
		return errors.WithMessage(err, "error writing string pool")
	}

	strBytes := shortStrBytes
	if longRefs {
		strBytes = longStrBytes
	}

	var saveErr error
	saved := 0
	db.tables.Ascend(func(t *Table) bool {
		if !t.Persistent {
			return true
		}
		data, err := encodeRows(t, strBytes)
		if err != nil {
			saveErr = err
			return false
		}
		if err := db.store.WriteStream(tableStreamName(t.Name), data); err != nil {
			saveErr = errors.WithMessagef(err, "error writing table %s", t.Name)
			return false
		}
		saved++
		return true
	})
	if saveErr != nil {
		return saveErr
	}

	db.logger.Infow("Committed database", "id", db.DatabaseID, "tables", saved, "strings", db.strings.Len(), "longRefs", longRefs)
	return nil
}

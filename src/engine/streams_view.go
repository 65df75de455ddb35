package engine

import (
	"io"

	"msidb/src/dberror"
	"msidb/src/hashindex"
	"msidb/src/record"

	"github.com/pkg/errors"
)

const maxStreamNameLen = 62

// blobNamespace is the part of the container a virtual table lists.
type blobNamespace struct {
	table     string
	enumerate func() ([]string, error)
	read      func(name string) ([]byte, error)
	write     func(name string, data []byte) error
	remove    func(name string) error
}

// blobView is a two column table, Name and Data, over one namespace of
// the container. Row numbers follow the sorted enumeration.
type blobView struct {
	db    *Database
	ns    blobNamespace
	names []string
	ids   []uint32
	index [2]*hashindex.HashIndex
}

// StreamsView lists the streams of the container, except the ones that
// hold the database itself.
type StreamsView struct {
	blobView
}

// StoragesView lists the nested storages of the container.
type StoragesView struct {
	blobView
}

func NewStreamsView(db *Database) (*StreamsView, error) {
	sv := &StreamsView{blobView{db: db, ns: blobNamespace{
		table:     StreamsTable,
		enumerate: db.store.EnumerateStreams,
		read:      db.store.ReadStream,
		write:     db.store.WriteStream,
		remove:    db.store.DeleteStream,
	}}}
	if err := sv.refresh(); err != nil {
		return nil, err
	}
	return sv, nil
}

func NewStoragesView(db *Database) (*StoragesView, error) {
	sv := &StoragesView{blobView{db: db, ns: blobNamespace{
		table:     StoragesTable,
		enumerate: db.store.EnumerateStorages,
		write:     db.store.CreateStorage,
		remove:    db.store.DestroyStorage,
	}}}
	if err := sv.refresh(); err != nil {
		return nil, err
	}
	return sv, nil
}

// refresh re-reads the namespace. Names are interned as session strings.
func (bv *blobView) refresh() error {
	names, err := bv.ns.enumerate()
	if err != nil {
		return errors.WithMessagef(err, "error enumerating %s", bv.ns.table)
	}

	bv.names = bv.names[:0]
	bv.ids = bv.ids[:0]
	for _, name := range names {
		if isReservedStream(name) {
			continue
		}
		id, err := bv.db.strings.Intern(name, false)
		if err != nil {
			return err
		}
		bv.names = append(bv.names, name)
		bv.ids = append(bv.ids, id)
	}
	bv.index = [2]*hashindex.HashIndex{}
	return nil
}

func (bv *blobView) hasName(name string) bool {
	for _, n := range bv.names {
		if n == name {
			return true
		}
	}
	return false
}

func (bv *blobView) FetchInt(row, col int) (uint32, error) {
	if col < 1 || col > 2 {
		return 0, errors.Wrapf(dberror.ErrInvalidParameter, "%s has no column %d", bv.ns.table, col)
	}
	if row < 0 || row >= len(bv.names) {
		return 0, dberror.ErrNoMoreItems
	}
	if col == 1 {
		return bv.ids[row], nil
	}
	return 1, nil
}

func (bv *blobView) GetDimensions() (int, int, error) {
	return len(bv.names), 2, nil
}

func (bv *blobView) GetColumnInfo(col int) (ColumnInfo, error) {
	switch col {
	case 1:
		return ColumnInfo{Name: "Name", Table: bv.ns.table, Type: String(maxStreamNameLen).AsKey()}, nil
	case 2:
		return ColumnInfo{Name: "Data", Table: bv.ns.table, Type: Binary()}, nil
	}
	return ColumnInfo{}, errors.Wrapf(dberror.ErrInvalidParameter, "%s has no column %d", bv.ns.table, col)
}

// recordName reads the Name field of rec.
func recordName(rec *record.Record) (string, error) {
	name, ok := fieldString(rec, 1)
	if !ok || name == "" {
		return "", errors.Wrap(dberror.ErrInvalidParameter, "record has no name")
	}
	if isReservedStream(name) {
		return "", errors.Wrapf(dberror.ErrInvalidParameter, "name %q is reserved", name)
	}
	return name, nil
}

// recordData reads the Data field of rec. A null field is empty data.
func recordData(rec *record.Record) ([]byte, error) {
	if rec.IsNull(2) {
		return nil, nil
	}
	stm, err := rec.GetStream(2)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(stm)
	if err != nil {
		return nil, errors.Wrap(err, "error reading record stream")
	}
	return data, nil
}

func (bv *blobView) InsertRow(rec *record.Record, row int, temporary bool) error {
	if rec == nil {
		return errors.Wrap(dberror.ErrInvalidParameter, "nil record")
	}
	name, err := recordName(rec)
	if err != nil {
		return err
	}
	if bv.hasName(name) {
		return errors.Wrapf(dberror.ErrFunctionFailed, "%s already has %q", bv.ns.table, name)
	}
	data, err := recordData(rec)
	if err != nil {
		return err
	}
	if err := bv.ns.write(name, data); err != nil {
		bv.db.trace("InsertRow", err, "table", bv.ns.table, "stream", name)
		return err
	}
	return bv.refresh()
}

// SetRow renames and/or rewrites one entry.
func (bv *blobView) SetRow(row int, rec *record.Record, mask uint32) error {
	if rec == nil || mask >= 1<<2 {
		return errors.Wrap(dberror.ErrInvalidParameter, "bad record or mask")
	}
	if row < 0 || row >= len(bv.names) {
		return errors.Wrapf(dberror.ErrInvalidParameter, "%s has no row %d", bv.ns.table, row)
	}

	oldName := bv.names[row]
	name := oldName
	if mask&1 != 0 {
		var err error
		if name, err = recordName(rec); err != nil {
			return err
		}
		if name != oldName && bv.hasName(name) {
			return errors.Wrapf(dberror.ErrFunctionFailed, "%s already has %q", bv.ns.table, name)
		}
	}

	var data []byte
	if mask&2 != 0 {
		var err error
		if data, err = recordData(rec); err != nil {
			return err
		}
	} else {
		if bv.ns.read == nil {
			return errors.Wrapf(dberror.ErrFunctionFailed, "%s cannot rename without data", bv.ns.table)
		}
		var err error
		if data, err = bv.ns.read(oldName); err != nil {
			return err
		}
	}

	if err := bv.ns.remove(oldName); err != nil {
		return err
	}
	if err := bv.ns.write(name, data); err != nil {
		return err
	}
	return bv.refresh()
}

func (bv *blobView) DeleteRow(row int) error {
	if row < 0 || row >= len(bv.names) {
		return errors.Wrapf(dberror.ErrFunctionFailed, "%s has no row %d", bv.ns.table, row)
	}
	if err := bv.ns.remove(bv.names[row]); err != nil {
		return err
	}
	return bv.refresh()
}

func (bv *blobView) Execute(params *record.Record) error {
	return bv.refresh()
}

func (bv *blobView) Close() error {
	return nil
}

func (bv *blobView) FindMatchingRows(col int, val uint32, cur *Cursor) (int, error) {
	if col < 1 || col > 2 {
		return 0, errors.Wrapf(dberror.ErrInvalidParameter, "%s has no column %d", bv.ns.table, col)
	}
	if bv.index[col-1] == nil {
		bv.index[col-1] = hashindex.Build(len(bv.names), func(row int) (uint32, error) {
			return bv.FetchInt(row, col)
		})
	}
	return bv.index[col-1].Next(val, cur)
}

func (bv *blobView) Delete() error {
	return nil
}

// FetchStream returns the contents of a stream.
func (sv *StreamsView) FetchStream(row, col int) (io.ReadSeeker, error) {
	if col != 2 {
		return nil, errors.Wrapf(dberror.ErrInvalidParameter, "%s column %d is not binary", StreamsTable, col)
	}
	if row < 0 || row >= len(sv.names) {
		return nil, errors.Wrapf(dberror.ErrFunctionFailed, "%s has no row %d", StreamsTable, row)
	}
	data, err := sv.ns.read(sv.names[row])
	if err != nil {
		return nil, err
	}
	return streamReader(data), nil
}

func (sv *StreamsView) GetRow(row int) (*record.Record, error) {
	return getRow(sv.db, sv, row)
}

// FetchStream always fails; storages are not readable as streams.
func (sv *StoragesView) FetchStream(row, col int) (io.ReadSeeker, error) {
	return nil, errors.Wrapf(dberror.ErrInvalidData, "%s entries cannot be read as streams", StoragesTable)
}

func (sv *StoragesView) GetRow(row int) (*record.Record, error) {
	return getRow(sv.db, sv, row)
}

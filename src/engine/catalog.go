package engine

import (
	"sort"

	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// Names of the system tables.
const (
	TablesTable   = "_Tables"
	ColumnsTable  = "_Columns"
	StreamsTable  = "_Streams"
	StoragesTable = "_Storages"
)

const maxNameLen = 64

var tablesColumns = []ColumnDef{
	{Name: "Name", Type: String(maxNameLen).AsKey()},
}

var columnsColumns = []ColumnDef{
	{Name: "Table", Type: String(maxNameLen).AsKey()},
	{Name: "Number", Type: Integer(2).AsKey()},
	{Name: "Name", Type: String(maxNameLen)},
	{Name: "Type", Type: Integer(2)},
}

func isSystemTable(name string) bool {
	switch name {
	case TablesTable, ColumnsTable, StreamsTable, StoragesTable:
		return true
	}
	return false
}

func (db *Database) catalogTable(name string) *Table {
	t, _ := db.tables.Get(&Table{Name: name})
	return t
}

func (db *Database) catalogView(name string) *TableView {
	return &TableView{db: db, table: db.catalogTable(name), name: name}
}

// TableExists reports whether name is a system table, a table created in
// this session, or a table listed in _Tables.
func (db *Database) TableExists(name string) bool {
	if isSystemTable(name) {
		return true
	}
	if _, ok := db.tables.Get(&Table{Name: name}); ok {
		return true
	}
	_, ok := db.tableRow(name)
	return ok
}

// TableNames lists the user tables in name order.
func (db *Database) TableNames() []string {
	t := db.catalogTable(TablesTable)
	names := make([]string, 0, t.RowCount())
	for row := 0; row < t.RowCount(); row++ {
		id, err := t.FetchInt(row, 1)
		if err != nil {
			continue
		}
		if s, ok := db.strings.Lookup(id); ok {
			names = append(names, s)
		}
	}
	sort.Strings(names)
	return names
}

// tableRow finds the _Tables row of name.
func (db *Database) tableRow(name string) (int, bool) {
	rec := record.New(1)
	rec.SetString(1, name)
	return db.findRow(db.catalogTable(TablesTable), rec)
}

func (db *Database) columnRow(table string, number int) (int, bool) {
	rec := record.New(2)
	rec.SetString(1, table)
	rec.SetInteger(2, int32(number))
	return db.findRow(db.catalogTable(ColumnsTable), rec)
}

// getTable returns a table from the catalog, loading it from the container
// if it is listed but not yet in memory.
func (db *Database) getTable(name string) (*Table, error) {
	if t, ok := db.tables.Get(&Table{Name: name}); ok {
		return t, nil
	}
	if _, ok := db.tableRow(name); !ok {
		return nil, errors.Wrapf(dberror.ErrNotFound, "table %s", name)
	}

	t, err := db.loadTable(name)
	if err != nil {
		return nil, err
	}
	db.tables.ReplaceOrInsert(t)
	return t, nil
}

// tableColumns reads the column definitions of a table from _Columns.
// Columns that were temporary when the table was saved leave gaps in the
// stored numbers; the rows are renumbered 1..n to match the loaded table.
func (db *Database) tableColumns(name string) ([]ColumnDef, error) {
	id, err := db.strings.IDOf(name)
	if err != nil {
		return nil, errors.Wrapf(dberror.ErrInvalidData, "table %s has no columns", name)
	}

	columns := db.catalogTable(ColumnsTable)
	type numbered struct {
		row    int
		number int32
		def    ColumnDef
	}
	var found []numbered

	var cur Cursor
	for {
		row, err := columns.FindMatchingRows(1, id, &cur)
		if dberror.IsEnd(err) {
			break
		}
		if err != nil {
			return nil, err
		}

		rec, err := db.catalogView(ColumnsTable).GetRow(row)
		if err != nil {
			return nil, err
		}
		colName, _ := rec.GetString(3)
		found = append(found, numbered{
			row:    row,
			number: rec.GetInteger(2),
			def:    ColumnDef{Name: colName, Type: ParseColumnType(uint16(rec.GetInteger(4)))},
		})
	}
	if len(found) == 0 {
		return nil, errors.Wrapf(dberror.ErrInvalidData, "table %s has no columns", name)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].number < found[j].number })
	defs := make([]ColumnDef, len(found))
	for i, f := range found {
		defs[i] = f.def
		if f.number == int32(i+1) {
			continue
		}
		val, err := packInt(Integer(2), int32(i+1))
		if err != nil {
			return nil, err
		}
		if err := columns.SetInt(f.row, 2, val); err != nil {
			return nil, err
		}
		db.logger.Debugw("Renumbered column", "table", name, "column", f.def.Name, "from", f.number, "to", i+1)
	}
	return defs, nil
}

// createTable adds a table to the catalog. Persistent tables are listed in
// _Tables and _Columns; a held temporary table only gets a temporary
// _Tables row.
func (db *Database) createTable(name string, defs []ColumnDef, persistent, hold bool) error {
	if db.TableExists(name) {
		return errors.Wrapf(dberror.ErrBadQuerySyntax, "table %s already exists", name)
	}
	if len(defs) > maxColumns {
		return errors.Wrapf(dberror.ErrFunctionFailed, "table %s has %d columns, at most %d allowed", name, len(defs), maxColumns)
	}

	t := newTable(name, defs, persistent)
	db.tables.ReplaceOrInsert(t)
	if hold {
		(&TableView{db: db, table: t, name: name}).AddRef()
	}

	rec := record.New(1)
	rec.SetString(1, name)
	if err := db.catalogView(TablesTable).InsertRow(rec, -1, !persistent); err != nil {
		return err
	}

	if !persistent {
		return nil
	}
	for _, col := range t.columns {
		if err := db.insertColumnRow(col); err != nil {
			return err
		}
	}

	db.logger.Infow("Created table", "table", name, "columns", len(defs), "hold", hold)
	return nil
}

func (db *Database) insertColumnRow(col *Column) error {
	rec := record.New(4)
	rec.SetString(1, col.Table)
	rec.SetInteger(2, int32(col.Number))
	rec.SetString(3, col.Name)
	rec.SetInteger(4, int32(col.Type.Word()))
	return db.catalogView(ColumnsTable).InsertRow(rec, -1, col.Type.Temporary)
}

// addColumn appends a column to t and grows every row. A held column
// starts with one hold.
func (db *Database) addColumn(t *Table, def ColumnDef, hold bool) error {
	if _, exists := t.findColumn(def.Name); exists {
		return errors.Wrapf(dberror.ErrBadQuerySyntax, "table %s already has column %s", t.Name, def.Name)
	}
	if len(t.columns) >= maxColumns {
		return errors.Wrapf(dberror.ErrFunctionFailed, "table %s has too many columns", t.Name)
	}

	col := &Column{Table: t.Name, Number: len(t.columns) + 1, Name: def.Name, Type: def.Type}
	if t.Persistent {
		if err := db.insertColumnRow(col); err != nil {
			return err
		}
	}
	t.relayout(append(append([]*Column{}, t.columns...), col))
	if hold {
		col.refs.addRef()
	}

	db.logger.Debugw("Added column", "table", t.Name, "column", def.Name, "number", col.Number, "hold", hold)
	return nil
}

// removeColumn drops a column from t, shrinks every row and renumbers the
// later columns in _Columns.
func (db *Database) removeColumn(t *Table, col *Column) error {
	idx := -1
	for i, c := range t.columns {
		if c == col {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.Wrapf(dberror.ErrNotFound, "table %s has no column %s", t.Name, col.Name)
	}
	if col.Type.Kind == KindBinary {
		for row := range t.rows {
			if err := db.dropRowStream(t, row, col); err != nil {
				return err
			}
		}
	}

	catalog := db.catalogTable(ColumnsTable)
	if row, ok := db.columnRow(t.Name, col.Number); ok {
		if err := catalog.DeleteRow(row); err != nil {
			return err
		}
	}

	columns := append(append([]*Column{}, t.columns[:idx]...), t.columns[idx+1:]...)
	for _, later := range columns[idx:] {
		row, ok := db.columnRow(t.Name, later.Number)
		if !ok {
			continue
		}
		val, err := packInt(Integer(2), int32(later.Number-1))
		if err != nil {
			return err
		}
		if err := catalog.SetInt(row, 2, val); err != nil {
			return err
		}
	}
	t.relayout(columns)

	db.logger.Debugw("Removed column", "table", t.Name, "column", col.Name, "rowSize", t.rowSize)
	return nil
}

// forgetTable removes t from the catalog along with its _Tables row and
// its data stream.
func (db *Database) forgetTable(t *Table) error {
	if row, ok := db.tableRow(t.Name); ok {
		if err := db.catalogTable(TablesTable).DeleteRow(row); err != nil {
			return err
		}
	}
	db.tables.Delete(t)

	if err := db.store.DeleteStream(tableStreamName(t.Name)); err != nil && !errors.Is(err, dberror.ErrNotFound) {
		return err
	}

	db.logger.Infow("Removed table", "table", t.Name)
	return nil
}

package engine

import (
	"testing"

	"msidb/src/container"
	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(container.NewMemoryStore(), Options{Debug: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *Database, name string, defs ...ColumnDef) *TableView {
	t.Helper()
	if err := db.CreateTable(name, defs, false); err != nil {
		t.Fatalf("CreateTable(%s) failed: %v", name, err)
	}
	return mustTableView(t, db, name)
}

func mustTableView(t *testing.T, db *Database, name string) *TableView {
	t.Helper()
	v, err := NewTableView(db, name)
	if err != nil {
		t.Fatalf("NewTableView(%s) failed: %v", name, err)
	}
	return v.(*TableView)
}

// newRecord builds a record from nil, int and string values.
func newRecord(t *testing.T, values ...interface{}) *record.Record {
	t.Helper()
	rec := record.New(len(values))
	for i, v := range values {
		switch v := v.(type) {
		case nil:
		case int:
			rec.SetInteger(i+1, int32(v))
		case string:
			rec.SetString(i+1, v)
		case []byte:
			rec.SetStreamBytes(i+1, v)
		default:
			t.Fatalf("unsupported value %T", v)
		}
	}
	return rec
}

func mustInsert(t *testing.T, tv *TableView, values ...interface{}) {
	t.Helper()
	if err := tv.InsertRow(newRecord(t, values...), -1, false); err != nil {
		t.Fatalf("InsertRow(%v) failed: %v", values, err)
	}
}

func mustRow(t *testing.T, v View, row int) *record.Record {
	t.Helper()
	rec, err := v.GetRow(row)
	if err != nil {
		t.Fatalf("GetRow(%d) failed: %v", row, err)
	}
	return rec
}

func idNameColumns() []ColumnDef {
	return []ColumnDef{
		{Name: "Id", Type: Integer(2).AsKey()},
		{Name: "Name", Type: String(0)},
	}
}

func TestInsertOrdersByKey(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "T", idNameColumns()...)

	mustInsert(t, tv, 2, "b")
	mustInsert(t, tv, 1, "a")

	first, second := mustRow(t, tv, 0), mustRow(t, tv, 1)
	if first.GetInteger(1) != 1 || second.GetInteger(1) != 2 {
		t.Fatalf("rows out of order: %v %v", first.Format(), second.Format())
	}
	if s, _ := first.GetString(2); s != "a" {
		t.Errorf("row 0 name = %q", s)
	}
	if s, _ := second.GetString(2); s != "b" {
		t.Errorf("row 1 name = %q", s)
	}
}

func TestOrderingInvariantHoldsAfterEveryInsert(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "Numbers", ColumnDef{Name: "N", Type: Integer(4).AsKey()})

	for _, n := range []int{7, 3, 9, 1, 5, -70000, 8, 2, 6, 4, 0, -3, 100000} {
		mustInsert(t, tv, n)

		prev := int32(-1 << 31)
		for row := 0; row < tv.Table().RowCount(); row++ {
			v := mustRow(t, tv, row).GetInteger(1)
			if row > 0 && v <= prev {
				t.Fatalf("after inserting %d row %d holds %d, previous %d", n, row, v, prev)
			}
			prev = v
		}
	}
}

func TestStringKeysSortByText(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "Fruit", ColumnDef{Name: "Name", Type: String(32).AsKey()})

	// intern in a different order than the text order
	for _, s := range []string{"pear", "apple", "fig", "banana"} {
		mustInsert(t, tv, s)
	}

	want := []string{"apple", "banana", "fig", "pear"}
	for row, w := range want {
		if s, _ := mustRow(t, tv, row).GetString(1); s != w {
			t.Errorf("row %d = %q, want %q", row, s, w)
		}
	}
}

func TestNullKeyGoesFirst(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "T",
		ColumnDef{Name: "Id", Type: Integer(2).AsKey().AsNullable()},
		ColumnDef{Name: "Name", Type: String(0)},
	)

	mustInsert(t, tv, 5, "e")
	mustInsert(t, tv, 3, "c")
	mustInsert(t, tv, nil, "n")

	rec := mustRow(t, tv, 0)
	if !rec.IsNull(1) {
		t.Errorf("row 0 key = %d, want null", rec.GetInteger(1))
	}
	if s, _ := rec.GetString(2); s != "n" {
		t.Errorf("row 0 name = %q", s)
	}
	if got := mustRow(t, tv, 1).GetInteger(1); got != 3 {
		t.Errorf("row 1 key = %d, want 3", got)
	}
}

func TestInsertRejectsNullRequiredColumn(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "T", idNameColumns()...)

	err := tv.InsertRow(newRecord(t, nil, "x"), -1, false)
	if !errors.Is(err, dberror.ErrInvalidData) {
		t.Errorf("null key: expected InvalidData, got %v", err)
	}

	err = tv.InsertRow(newRecord(t, 1, ""), -1, false)
	if !errors.Is(err, dberror.ErrInvalidData) {
		t.Errorf("empty string: expected InvalidData, got %v", err)
	}
	if tv.Table().RowCount() != 0 {
		t.Errorf("rejected rows were stored")
	}
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "T", idNameColumns()...)

	mustInsert(t, tv, 1, "a")
	err := tv.InsertRow(newRecord(t, 1, "other"), -1, false)
	if !errors.Is(err, dberror.ErrFunctionFailed) {
		t.Errorf("expected FunctionFailed, got %v", err)
	}
}

func TestShortIntegerRange(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "T", ColumnDef{Name: "Id", Type: Integer(2).AsKey()})

	mustInsert(t, tv, 0x7FFF)
	mustInsert(t, tv, -0x7FFF)
	if err := tv.InsertRow(newRecord(t, 0x8000), -1, false); !errors.Is(err, dberror.ErrFunctionFailed) {
		t.Errorf("expected FunctionFailed for 0x8000, got %v", err)
	}
	if tv.Table().RowCount() != 2 {
		t.Errorf("failed insert left a row behind: %d rows", tv.Table().RowCount())
	}
}

func TestRoundTrip(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "Mixed",
		ColumnDef{Name: "Id", Type: Integer(2).AsKey()},
		ColumnDef{Name: "Big", Type: Integer(4)},
		ColumnDef{Name: "Text", Type: String(40)},
		ColumnDef{Name: "Note", Type: String(40).AsNullable()},
		ColumnDef{Name: "Zero", Type: Integer(2)},
	)

	in := newRecord(t, -12, -70000, "hello", nil, 0)
	if err := tv.InsertRow(in, -1, false); err != nil {
		t.Fatal(err)
	}

	sel, err := NewSelectView(db, tv, []ColumnRef{{Column: "Id"}, {Column: "Big"}, {Column: "Text"}, {Column: "Note"}, {Column: "Zero"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := sel.Execute(nil); err != nil {
		t.Fatal(err)
	}
	if out := mustRow(t, sel, 0); !out.Equal(in) {
		t.Errorf("round trip: got %v, want %v", out.Format(), in.Format())
	}
}

func TestFetchIntBounds(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "T", idNameColumns()...)
	mustInsert(t, tv, 1, "a")
	mustInsert(t, tv, 2, "b")
	mustInsert(t, tv, 3, "c")

	if _, err := tv.FetchInt(99, 1); !errors.Is(err, dberror.ErrNoMoreItems) {
		t.Errorf("row 99: expected NoMoreItems, got %v", err)
	}
	if _, err := tv.FetchInt(0, 99); !errors.Is(err, dberror.ErrInvalidParameter) {
		t.Errorf("col 99: expected InvalidParameter, got %v", err)
	}
	if _, err := tv.FetchInt(99, 0); !errors.Is(err, dberror.ErrInvalidParameter) {
		t.Errorf("col 0 is checked before the row, got %v", err)
	}
	if err := tv.Table().SetInt(5, 1, 1); !errors.Is(err, dberror.ErrInvalidParameter) {
		t.Errorf("SetInt out of range: got %v", err)
	}
}

func TestDeleteRowBounds(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "T", idNameColumns()...)
	mustInsert(t, tv, 1, "a")
	mustInsert(t, tv, 2, "b")

	if err := tv.DeleteRow(2); !errors.Is(err, dberror.ErrFunctionFailed) {
		t.Errorf("past the end: got %v", err)
	}
	if err := tv.DeleteRow(-1); !errors.Is(err, dberror.ErrInvalidParameter) {
		t.Errorf("negative row: got %v", err)
	}
	if err := tv.DeleteRow(0); err != nil {
		t.Fatal(err)
	}
	if got := mustRow(t, tv, 0).GetInteger(1); got != 2 {
		t.Errorf("remaining row = %d, want 2", got)
	}
}

func TestFindMatchingRowsSeesWrites(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "T",
		ColumnDef{Name: "Id", Type: Integer(2).AsKey()},
		ColumnDef{Name: "Flag", Type: Integer(2)},
	)
	mustInsert(t, tv, 1, 10)
	mustInsert(t, tv, 2, 20)
	mustInsert(t, tv, 3, 10)

	ten, _ := packInt(Integer(2), 10)
	thirty, _ := packInt(Integer(2), 30)

	matches := func(val uint32) []int {
		var rows []int
		var cur Cursor
		for {
			row, err := tv.FindMatchingRows(2, val, &cur)
			if dberror.IsEnd(err) {
				return rows
			}
			if err != nil {
				t.Fatalf("FindMatchingRows failed: %v", err)
			}
			rows = append(rows, row)
		}
	}

	if got := matches(ten); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("rows with 10 = %v", got)
	}

	var stale Cursor
	if _, err := tv.FindMatchingRows(2, ten, &stale); err != nil {
		t.Fatal(err)
	}

	if err := tv.Table().SetInt(0, 2, thirty); err != nil {
		t.Fatal(err)
	}
	if got := matches(ten); len(got) != 1 || got[0] != 2 {
		t.Errorf("rows with 10 after write = %v", got)
	}
	if got := matches(thirty); len(got) != 1 || got[0] != 0 {
		t.Errorf("rows with 30 after write = %v", got)
	}
	if _, err := tv.FindMatchingRows(2, ten, &stale); !errors.Is(err, dberror.ErrInvalidParameter) {
		t.Errorf("cursor from before the write: got %v", err)
	}
}

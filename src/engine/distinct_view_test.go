package engine

import (
	"math/rand"
	"testing"

	"msidb/src/dberror"

	"github.com/pkg/errors"
)

func keylessTable(t *testing.T, db *Database, rows [][2]int) *TableView {
	t.Helper()
	tv := mustCreate(t, db, "Pairs",
		ColumnDef{Name: "A", Type: Integer(2)},
		ColumnDef{Name: "B", Type: Integer(2)},
	)
	for _, r := range rows {
		mustInsert(t, tv, r[0], r[1])
	}
	return tv
}

func TestDistinctKeepsFirstOccurrences(t *testing.T) {
	db := openTestDB(t)
	tv := mustCreate(t, db, "T",
		ColumnDef{Name: "Id", Type: Integer(2)},
		ColumnDef{Name: "Name", Type: String(0)},
	)
	mustInsert(t, tv, 1, "a")
	mustInsert(t, tv, 1, "a")
	mustInsert(t, tv, 2, "b")

	dv, err := NewDistinctView(db, mustTableView(t, db, "T"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := dv.GetDimensions(); !errors.Is(err, dberror.ErrFunctionFailed) {
		t.Errorf("dimensions before Execute: got %v", err)
	}
	if err := dv.Execute(nil); err != nil {
		t.Fatal(err)
	}

	rows, cols, err := dv.GetDimensions()
	if err != nil || rows != 2 || cols != 2 {
		t.Fatalf("dimensions = %d x %d, %v", rows, cols, err)
	}

	want := []struct {
		id   int32
		name string
	}{{1, "a"}, {2, "b"}}
	for row, w := range want {
		rec := mustRow(t, dv, row)
		if s, _ := rec.GetString(2); rec.GetInteger(1) != w.id || s != w.name {
			t.Errorf("row %d = %v", row, rec.Format())
		}
	}

	if _, err := dv.FetchInt(2, 1); !errors.Is(err, dberror.ErrInvalidParameter) {
		t.Errorf("row past the distinct set: got %v", err)
	}

	one, _ := packInt(Integer(2), 1)
	var cur Cursor
	row, err := dv.FindMatchingRows(1, one, &cur)
	if err != nil || row != 0 {
		t.Errorf("first match = %d, %v", row, err)
	}
	if _, err := dv.FindMatchingRows(1, one, &cur); !dberror.IsEnd(err) {
		t.Errorf("duplicate row was reported again: %v", err)
	}

	if err := dv.Close(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := dv.GetDimensions(); err == nil {
		t.Error("closing should forget the result")
	}
}

func TestDistinctProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		input := make([][2]int, rng.Intn(40))
		for i := range input {
			input[i] = [2]int{rng.Intn(4), rng.Intn(3)}
		}

		db := openTestDB(t)
		keylessTable(t, db, input)

		dv, err := NewDistinctView(db, mustTableView(t, db, "Pairs"))
		if err != nil {
			t.Fatal(err)
		}
		if err := dv.Execute(nil); err != nil {
			t.Fatal(err)
		}

		var want [][2]int
		seen := make(map[[2]int]bool)
		for _, r := range input {
			if !seen[r] {
				seen[r] = true
				want = append(want, r)
			}
		}

		rows, _, _ := dv.GetDimensions()
		if rows != len(want) {
			t.Fatalf("round %d: %d distinct rows, want %d", round, rows, len(want))
		}
		for i, w := range want {
			rec := mustRow(t, dv, i)
			got := [2]int{int(rec.GetInteger(1)), int(rec.GetInteger(2))}
			if got != w {
				t.Errorf("round %d row %d = %v, want %v", round, i, got, w)
			}
		}
	}
}

package helpers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInsertPosition(t *testing.T) {
	values := []int{10, 20, 30, 40}
	tests := []struct {
		key  int
		want int
	}{
		{5, 0},
		{10, 0},
		{25, 2},
		{40, 3},
		{99, 4},
	}

	for _, tt := range tests {
		got := InsertPosition(len(values), func(i int) int { return tt.key - values[i] })
		if got != tt.want {
			t.Errorf("InsertPosition(%d) = %d, want %d", tt.key, got, tt.want)
		}
	}

	if got := InsertPosition(0, func(int) int { return 1 }); got != 0 {
		t.Errorf("empty search returned %d", got)
	}
}

func TestBSONRoundTrip(t *testing.T) {
	type doc struct {
		Name  string `bson:"name"`
		Count int32  `bson:"count"`
	}

	data, err := EncodeBSON(doc{Name: "Binary", Count: 3})
	if err != nil {
		t.Fatalf("EncodeBSON failed: %v", err)
	}

	var out doc
	if err := DecodeBSON(data, &out); err != nil {
		t.Fatalf("DecodeBSON failed: %v", err)
	}
	if out.Name != "Binary" || out.Count != 3 {
		t.Errorf("decoded %+v", out)
	}

	if err := DecodeBSON([]byte{1, 2}, &out); err == nil {
		t.Error("expected an error for truncated BSON")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.db")
	if FileExists(path, nil) {
		t.Fatal("file should not exist yet")
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path, nil) {
		t.Error("file should exist")
	}
	if FileExists(dir, nil) {
		t.Error("directories are not files")
	}
}

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	if a == b || len(a) != 36 {
		t.Errorf("unexpected uuids %q %q", a, b)
	}
}

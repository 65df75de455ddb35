package engine

import (
	"testing"
)

func TestColumnTypeWordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ct   ColumnType
		word uint16
	}{
		{"short int key", Integer(2).AsKey(), 0x2102},
		{"long nullable int", Integer(4).AsNullable(), 0x1104},
		{"string key", String(72).AsKey(), 0x2948},
		{"localizable string", String(255).AsNullable().AsLocalizable(), 0x1bff},
		{"temporary int", Integer(4).AsTemporary(), 0x4104},
		{"unlimited string", String(0), 0x0d00},
		{"binary", Binary(), 0x1900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ct.Word(); got != tt.word {
				t.Errorf("Word() = %#x, want %#x", got, tt.word)
			}
			if got := ParseColumnType(tt.word); got != tt.ct {
				t.Errorf("ParseColumnType(%#x) = %+v, want %+v", tt.word, got, tt.ct)
			}
		})
	}
}

func TestParseColumnTypeUnknown(t *testing.T) {
	for _, w := range []uint16{0, 0x0004, 0x8104} {
		if k := ParseColumnType(w).Kind; k != KindUnknown {
			t.Errorf("ParseColumnType(%#x).Kind = %s, want unknown", w, k)
		}
	}
}

func TestColumnWidths(t *testing.T) {
	tests := []struct {
		ct        ColumnType
		inMemory  int
		shortRefs int
	}{
		{Integer(1), 2, 2},
		{Integer(2), 2, 2},
		{Integer(4), 4, 4},
		{String(10), 3, 2},
		{Binary(), 2, 2},
		{ColumnType{}, 0, 0},
	}

	for _, tt := range tests {
		if got := tt.ct.width(longStrBytes); got != tt.inMemory {
			t.Errorf("%+v in-memory width = %d, want %d", tt.ct, got, tt.inMemory)
		}
		if got := tt.ct.width(shortStrBytes); got != tt.shortRefs {
			t.Errorf("%+v short-ref width = %d, want %d", tt.ct, got, tt.shortRefs)
		}
	}
}

func TestRefCountNeverGoesNegative(t *testing.T) {
	var r refCount
	if _, released := r.release(); released {
		t.Error("releasing an unheld count reported a release")
	}
	r.addRef()
	r.addRef()
	if n, released := r.release(); n != 1 || released {
		t.Errorf("release = %d, %v", n, released)
	}
	if n, released := r.release(); n != 0 || !released {
		t.Errorf("final release = %d, %v", n, released)
	}
	if r.count() != 0 {
		t.Errorf("count = %d", r.count())
	}
}

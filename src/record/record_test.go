package record

import (
	"io"
	"strings"
	"testing"

	"msidb/src/dberror"

	"github.com/pkg/errors"
)

func TestIntegerFields(t *testing.T) {
	r := New(3)
	if err := r.SetInteger(1, 42); err != nil {
		t.Fatalf("SetInteger failed: %v", err)
	}
	if got := r.GetInteger(1); got != 42 {
		t.Errorf("GetInteger = %d", got)
	}
	if got := r.GetInteger(2); got != NullInteger {
		t.Errorf("null field read as %d", got)
	}
	if err := r.SetInteger(4, 1); !errors.Is(err, dberror.ErrInvalidParameter) {
		t.Errorf("out of range set returned %v", err)
	}

	r.SetString(3, " 17 ")
	if got := r.GetInteger(3); got != 17 {
		t.Errorf("numeric string read as %d", got)
	}
	r.SetString(3, "abc")
	if got := r.GetInteger(3); got != NullInteger {
		t.Errorf("non-numeric string read as %d", got)
	}

	r.SetInteger(1, NullInteger)
	if !r.IsNull(1) {
		t.Error("NullInteger should store a null")
	}
}

func TestStringFields(t *testing.T) {
	r := New(2)
	r.SetString(1, "ProductCode")
	if s, ok := r.GetString(1); !ok || s != "ProductCode" {
		t.Errorf("GetString = %q, %v", s, ok)
	}
	r.SetString(2, "")
	if !r.IsNull(2) {
		t.Error("empty strings are stored as null")
	}
	r.SetInteger(2, 5)
	if _, ok := r.GetString(2); ok {
		t.Error("integer fields do not read as strings")
	}
	if !r.IsNull(9) {
		t.Error("absent fields read as null")
	}
}

func TestStreamFields(t *testing.T) {
	r := New(1)
	if err := r.SetStream(1, strings.NewReader("payload")); err != nil {
		t.Fatalf("SetStream failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		rd, err := r.GetStream(1)
		if err != nil {
			t.Fatalf("GetStream failed: %v", err)
		}
		data, _ := io.ReadAll(rd)
		if string(data) != "payload" {
			t.Errorf("read %q", data)
		}
	}

	r.SetInteger(1, 3)
	if _, err := r.GetStream(1); !errors.Is(err, dberror.ErrInvalidData) {
		t.Errorf("GetStream on an int returned %v", err)
	}
}

func TestCopyFieldAndClone(t *testing.T) {
	src := New(2)
	src.SetString(1, "a")
	src.SetStreamBytes(2, []byte{1, 2, 3})

	dst := New(3)
	if err := src.CopyField(1, dst, 3); err != nil {
		t.Fatalf("CopyField failed: %v", err)
	}
	if s, _ := dst.GetString(3); s != "a" {
		t.Errorf("copied %q", s)
	}
	if err := src.CopyField(1, dst, 0); err != nil {
		t.Errorf("placeholder destination should be skipped: %v", err)
	}
	if err := src.CopyField(5, dst, 1); !errors.Is(err, dberror.ErrFunctionFailed) {
		t.Errorf("bad source returned %v", err)
	}

	c := src.Clone()
	if !c.Equal(src) {
		t.Fatal("clone differs")
	}
	c.fields[1].Stream[0] = 9
	if src.Field(2).Stream[0] != 1 {
		t.Error("clone shares stream bytes with the original")
	}
}

func TestFormat(t *testing.T) {
	r := New(4)
	r.SetInteger(1, -7)
	r.SetString(2, "x")
	r.SetStreamBytes(3, []byte("abcd"))

	got := r.Format()
	want := []string{"-7", "x", "[stream 4 bytes]", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Format()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

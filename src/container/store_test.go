package container

import (
	"bytes"
	"testing"

	"msidb/src/dberror"

	"github.com/pkg/errors"
)

func TestMemoryStoreStreams(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.ReadStream("missing"); !errors.Is(err, dberror.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if err := s.WriteStream("", []byte("x")); !errors.Is(err, dberror.ErrInvalidParameter) {
		t.Fatalf("expected InvalidParameter for empty name, got %v", err)
	}

	payload := []byte("hello")
	if err := s.WriteStream("b", payload); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteStream("a", []byte("first")); err != nil {
		t.Fatal(err)
	}
	payload[0] = 'j'

	got, err := s.ReadStream("b")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("stream should not alias the caller's buffer, got %q", got)
	}

	names, _ := s.EnumerateStreams()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected stream names %v", names)
	}

	if err := s.DeleteStream("a"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteStream("a"); !errors.Is(err, dberror.ErrNotFound) {
		t.Errorf("second delete should be NotFound, got %v", err)
	}
}

func TestMemoryStoreStorages(t *testing.T) {
	s := NewMemoryStore()

	if err := s.CreateStorage("sub", []byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateStorage("sub", nil); !errors.Is(err, dberror.ErrFunctionFailed) {
		t.Errorf("duplicate storage should fail, got %v", err)
	}
	names, _ := s.EnumerateStorages()
	if len(names) != 1 || names[0] != "sub" {
		t.Errorf("unexpected storage names %v", names)
	}
	if err := s.DestroyStorage("sub"); err != nil {
		t.Fatal(err)
	}
	if err := s.DestroyStorage("sub"); !errors.Is(err, dberror.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

package container

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"msidb/src/dberror"

	"github.com/pkg/errors"
)

func TestFileStoreCommitAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product.msidb")

	fs, err := OpenFileStore(path, ModeCreate, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := fs.ID()
	if id == "" {
		t.Fatal("new container has no id")
	}
	if err := fs.WriteStream("Binary.Icon", []byte{0xde, 0xad}); err != nil {
		t.Fatal(err)
	}
	if err := fs.CreateStorage("cab1", []byte("nested")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := OpenFileStore(path, ModeReadOnly, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer ro.Close()

	if ro.ID() != id {
		t.Errorf("id changed across reopen: %s != %s", ro.ID(), id)
	}
	data, err := ro.ReadStream("Binary.Icon")
	if err != nil || !bytes.Equal(data, []byte{0xde, 0xad}) {
		t.Errorf("stream round trip: %v %v", data, err)
	}
	storages, _ := ro.EnumerateStorages()
	if len(storages) != 1 || storages[0] != "cab1" {
		t.Errorf("unexpected storages %v", storages)
	}
	if err := ro.WriteStream("x", nil); !errors.Is(err, dberror.ErrFunctionFailed) {
		t.Errorf("read-only write should fail, got %v", err)
	}
}

func TestFileStoreUncommittedChangesAreDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.msidb")

	fs, err := OpenFileStore(path, ModeCreate, nil)
	if err != nil {
		t.Fatal(err)
	}
	fs.Close()

	fs, err = OpenFileStore(path, ModeTransact, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteStream("pending", []byte("x")); err != nil {
		t.Fatal(err)
	}
	fs.Close()

	fs, err = OpenFileStore(path, ModeReadOnly, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close()
	if _, err := fs.ReadStream("pending"); !errors.Is(err, dberror.ErrNotFound) {
		t.Errorf("uncommitted stream survived: %v", err)
	}
}

func TestFileStoreRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	if _, err := OpenFileStore(filepath.Join(dir, "none.msidb"), ModeReadOnly, nil); !errors.Is(err, dberror.ErrNotFound) {
		t.Errorf("missing file: expected NotFound, got %v", err)
	}

	empty := filepath.Join(dir, "empty.msidb")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFileStore(empty, ModeReadOnly, nil); !errors.Is(err, dberror.ErrInvalidData) {
		t.Errorf("empty file: expected InvalidData, got %v", err)
	}

	garbage := filepath.Join(dir, "garbage.msidb")
	if err := os.WriteFile(garbage, []byte("not a container at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFileStore(garbage, ModeReadOnly, nil); !errors.Is(err, dberror.ErrInvalidData) {
		t.Errorf("garbage file: expected InvalidData, got %v", err)
	}
}

func TestFileStoreExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.msidb")

	fs, err := OpenFileStore(path, ModeCreate, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close()

	if _, err := OpenFileStore(path, ModeTransact, nil); err == nil {
		t.Error("second writer should not get the lock")
	}
}

func TestFileStoreCreateOverLockedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "held.msidb")

	fs, err := OpenFileStore(path, ModeCreate, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteStream("Keep", []byte("me")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Commit(); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenFileStore(path, ModeCreate, nil); err == nil {
		t.Fatal("create should not replace a container another store holds")
	}
	if err := fs.Close(); err != nil {
		t.Fatal(err)
	}

	reader, err := OpenFileStore(path, ModeReadOnly, nil)
	if err != nil {
		t.Fatal(err)
	}
	if data, err := reader.ReadStream("Keep"); err != nil || string(data) != "me" {
		t.Errorf("stream after refused create = %q, %v", data, err)
	}
	reader.Close()

	fresh, err := OpenFileStore(path, ModeCreate, nil)
	if err != nil {
		t.Fatalf("create over a released container failed: %v", err)
	}
	defer fresh.Close()
	if names, _ := fresh.EnumerateStreams(); len(names) != 0 {
		t.Errorf("recreated container has streams %v", names)
	}
}

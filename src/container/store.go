package container

import (
	"sort"

	"msidb/src/dberror"

	"github.com/pkg/errors"
)

// BlobStore is the named-blob container a database lives in. Streams are
// flat byte blobs; storages are nested containers kept as opaque bytes.
type BlobStore interface {
	ReadStream(name string) ([]byte, error)
	WriteStream(name string, data []byte) error
	DeleteStream(name string) error
	EnumerateStreams() ([]string, error)

	CreateStorage(name string, data []byte) error
	DestroyStorage(name string) error
	EnumerateStorages() ([]string, error)
}

// blobSet is the in-memory namespace shared by MemoryStore and FileStore.
type blobSet struct {
	streams  map[string][]byte
	storages map[string][]byte
}

func newBlobSet() blobSet {
	return blobSet{
		streams:  make(map[string][]byte),
		storages: make(map[string][]byte),
	}
}

func (b *blobSet) readStream(name string) ([]byte, error) {
	data, ok := b.streams[name]
	if !ok {
		return nil, errors.Wrapf(dberror.ErrNotFound, "stream %q", name)
	}
	return append([]byte{}, data...), nil
}

func (b *blobSet) writeStream(name string, data []byte) error {
	if name == "" {
		return errors.Wrap(dberror.ErrInvalidParameter, "empty stream name")
	}
	b.streams[name] = append([]byte{}, data...)
	return nil
}

func (b *blobSet) deleteStream(name string) error {
	if _, ok := b.streams[name]; !ok {
		return errors.Wrapf(dberror.ErrNotFound, "stream %q", name)
	}
	delete(b.streams, name)
	return nil
}

func (b *blobSet) createStorage(name string, data []byte) error {
	if name == "" {
		return errors.Wrap(dberror.ErrInvalidParameter, "empty storage name")
	}
	if _, ok := b.storages[name]; ok {
		return errors.Wrapf(dberror.ErrFunctionFailed, "storage %q already exists", name)
	}
	b.storages[name] = append([]byte{}, data...)
	return nil
}

func (b *blobSet) destroyStorage(name string) error {
	if _, ok := b.storages[name]; !ok {
		return errors.Wrapf(dberror.ErrNotFound, "storage %q", name)
	}
	delete(b.storages, name)
	return nil
}

func sortedNames(m map[string][]byte) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	blobs blobSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: newBlobSet()}
}

func (m *MemoryStore) ReadStream(name string) ([]byte, error) {
	return m.blobs.readStream(name)
}

func (m *MemoryStore) WriteStream(name string, data []byte) error {
	return m.blobs.writeStream(name, data)
}

func (m *MemoryStore) DeleteStream(name string) error {
	return m.blobs.deleteStream(name)
}

func (m *MemoryStore) EnumerateStreams() ([]string, error) {
	return sortedNames(m.blobs.streams), nil
}

func (m *MemoryStore) CreateStorage(name string, data []byte) error {
	return m.blobs.createStorage(name, data)
}

func (m *MemoryStore) DestroyStorage(name string) error {
	return m.blobs.destroyStorage(name)
}

func (m *MemoryStore) EnumerateStorages() ([]string, error) {
	return sortedNames(m.blobs.storages), nil
}

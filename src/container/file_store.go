package container

import (
	"bytes"
	"os"
	"path/filepath"

	"msidb/src/dberror"
	"msidb/src/helpers"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sys/unix"
)

const (
	containerMagic   = "MSIDB"
	containerVersion = 1
)

// OpenMode selects how a container file is opened.
type OpenMode int

const (
	ModeReadOnly OpenMode = iota
	ModeTransact
	ModeCreate
)

type containerEntry struct {
	Name string `bson:"name"`
	Data []byte `bson:"data"`
	Sum  []byte `bson:"sum"`
}

type containerDocument struct {
	Magic    string           `bson:"magic"`
	Version  int32            `bson:"version"`
	ID       string           `bson:"id"`
	Streams  []containerEntry `bson:"streams"`
	Storages []containerEntry `bson:"storages"`
}

// FileStore is a BlobStore persisted as a single BSON document on disk.
// Changes stay in memory until Commit. The file is held under an advisory
// lock for as long as the store is open.
type FileStore struct {
	path   string
	file   *os.File
	mode   OpenMode
	id     string
	blobs  blobSet
	dirty  bool
	logger *zap.SugaredLogger
}

func OpenFileStore(path string, mode OpenMode, logger *zap.SugaredLogger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	fs := &FileStore{
		path:   path,
		mode:   mode,
		blobs:  newBlobSet(),
		logger: logger,
	}

	if mode == ModeCreate {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create directory for %s", path)
		}
		// an existing container is replaced only if nobody holds it
		if helpers.FileExists(path, logger) {
			if err := fs.lockFile(); err != nil {
				return nil, err
			}
		}
		fs.id = helpers.GenerateUUID()
		fs.dirty = true
		if err := fs.writeFile(); err != nil {
			fs.unlock()
			return nil, err
		}
		return fs, nil
	}

	if !helpers.FileExists(path, logger) {
		return nil, errors.Wrapf(dberror.ErrNotFound, "container %s does not exist", path)
	}
	if err := fs.lockFile(); err != nil {
		return nil, err
	}
	if err := fs.load(); err != nil {
		fs.unlock()
		return nil, err
	}

	logger.Debugw("Opened container", "path", path, "streams", len(fs.blobs.streams), "storages", len(fs.blobs.storages))
	return fs, nil
}

// lockFile opens path and takes the advisory lock matching the open mode.
func (fs *FileStore) lockFile() error {
	flags, how := os.O_RDWR, unix.LOCK_EX
	if fs.mode == ModeReadOnly {
		flags, how = os.O_RDONLY, unix.LOCK_SH
	}

	file, err := os.OpenFile(fs.path, flags, 0644)
	if err != nil {
		return errors.Wrapf(err, "error opening container %s", fs.path)
	}
	if err := unix.Flock(int(file.Fd()), how|unix.LOCK_NB); err != nil {
		file.Close()
		return errors.Wrapf(err, "container %s is locked by another process", fs.path)
	}
	fs.file = file
	return nil
}

func (fs *FileStore) unlock() {
	if fs.file == nil {
		return
	}
	unix.Flock(int(fs.file.Fd()), unix.LOCK_UN)
	fs.file.Close()
	fs.file = nil
}

// load maps the locked file and decodes it.
func (fs *FileStore) load() error {
	stat, err := fs.file.Stat()
	if err != nil {
		return errors.Wrapf(err, "failed to get stats for %s", fs.path)
	}
	size := int(stat.Size())
	if size == 0 {
		return errors.Wrapf(dberror.ErrInvalidData, "container %s is empty", fs.path)
	}

	data, err := unix.Mmap(int(fs.file.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrapf(err, "failed to memory map %s", fs.path)
	}
	defer unix.Munmap(data)

	var doc containerDocument
	if err := helpers.DecodeBSON(data, &doc); err != nil {
		return errors.Wrapf(dberror.ErrInvalidData, "error decoding container %s: %v", fs.path, err)
	}
	if doc.Magic != containerMagic {
		return errors.Wrapf(dberror.ErrInvalidData, "%s is not a container file", fs.path)
	}
	if doc.Version != containerVersion {
		return errors.Wrapf(dberror.ErrInvalidData, "unsupported container version %d", doc.Version)
	}

	fs.id = doc.ID
	if err := fill(fs.blobs.streams, doc.Streams); err != nil {
		return errors.WithMessagef(err, "container %s", fs.path)
	}
	if err := fill(fs.blobs.storages, doc.Storages); err != nil {
		return errors.WithMessagef(err, "container %s", fs.path)
	}
	return nil
}

func fill(dst map[string][]byte, entries []containerEntry) error {
	for _, e := range entries {
		sum := blake2b.Sum256(e.Data)
		if !bytes.Equal(sum[:], e.Sum) {
			return errors.Wrapf(dberror.ErrInvalidData, "checksum mismatch for %q", e.Name)
		}
		dst[e.Name] = append([]byte{}, e.Data...)
	}
	return nil
}

func entries(m map[string][]byte) []containerEntry {
	out := make([]containerEntry, 0, len(m))
	for _, name := range sortedNames(m) {
		sum := blake2b.Sum256(m[name])
		out = append(out, containerEntry{Name: name, Data: m[name], Sum: sum[:]})
	}
	return out
}

// writeFile replaces the container file with the current contents. The new
// document goes to a temporary file that is renamed over the old one, and
// the lock moves to the new file.
func (fs *FileStore) writeFile() error {
	doc := containerDocument{
		Magic:    containerMagic,
		Version:  containerVersion,
		ID:       fs.id,
		Streams:  entries(fs.blobs.streams),
		Storages: entries(fs.blobs.storages),
	}
	encoded, err := helpers.EncodeBSON(doc)
	if err != nil {
		return err
	}

	tmpPath := filepath.Join(filepath.Dir(fs.path), "."+filepath.Base(fs.path)+"."+helpers.GenerateUUID()+".tmp")
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrapf(err, "error creating temporary file %s", tmpPath)
	}

	n, err := tmp.Write(encoded)
	if err == nil && n != len(encoded) {
		err = errors.Errorf("wrote %d bytes, expected %d", n, len(encoded))
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "error writing container %s", fs.path)
	}

	if err := os.Rename(tmpPath, fs.path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "error replacing container %s", fs.path)
	}

	fs.unlock()
	if err := fs.lockFile(); err != nil {
		return err
	}
	fs.dirty = false

	fs.logger.Debugw("Committed container", "path", fs.path, "bytes", len(encoded))
	return nil
}

func (fs *FileStore) writable() error {
	if fs.file == nil {
		return errors.Wrapf(dberror.ErrFunctionFailed, "container %s is closed", fs.path)
	}
	if fs.mode == ModeReadOnly {
		return errors.Wrapf(dberror.ErrFunctionFailed, "container %s is read-only", fs.path)
	}
	return nil
}

// Commit writes pending changes to disk.
func (fs *FileStore) Commit() error {
	if err := fs.writable(); err != nil {
		return err
	}
	if !fs.dirty {
		return nil
	}
	return fs.writeFile()
}

// Close releases the lock. Uncommitted changes are discarded.
func (fs *FileStore) Close() error {
	if fs.dirty && fs.mode != ModeReadOnly {
		fs.logger.Warnw("Closing container with uncommitted changes", "path", fs.path)
	}
	fs.unlock()
	return nil
}

// ID is the identifier assigned when the container was created.
func (fs *FileStore) ID() string {
	return fs.id
}

func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) ReadStream(name string) ([]byte, error) {
	return fs.blobs.readStream(name)
}

func (fs *FileStore) WriteStream(name string, data []byte) error {
	if err := fs.writable(); err != nil {
		return err
	}
	if err := fs.blobs.writeStream(name, data); err != nil {
		return err
	}
	fs.dirty = true
	return nil
}

func (fs *FileStore) DeleteStream(name string) error {
	if err := fs.writable(); err != nil {
		return err
	}
	if err := fs.blobs.deleteStream(name); err != nil {
		return err
	}
	fs.dirty = true
	return nil
}

func (fs *FileStore) EnumerateStreams() ([]string, error) {
	return sortedNames(fs.blobs.streams), nil
}

func (fs *FileStore) CreateStorage(name string, data []byte) error {
	if err := fs.writable(); err != nil {
		return err
	}
	if err := fs.blobs.createStorage(name, data); err != nil {
		return err
	}
	fs.dirty = true
	return nil
}

func (fs *FileStore) DestroyStorage(name string) error {
	if err := fs.writable(); err != nil {
		return err
	}
	if err := fs.blobs.destroyStorage(name); err != nil {
		return err
	}
	fs.dirty = true
	return nil
}

func (fs *FileStore) EnumerateStorages() ([]string, error) {
	return sortedNames(fs.blobs.storages), nil
}

// Package file implements backend.Store over a regular file or raw
// block device.
package file

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio"

	"github.com/voxfs-go/voxfs/backend"
)

// rawStore is a backend.Store backed by an *os.File, which may be a
// regular image file or a raw block device such as /dev/sda.
type rawStore struct {
	f *os.File
}

// backend.Store interface guard.
var _ backend.Store = rawStore{}

// New wraps an already-open file as a backend.Store.
func New(f *os.File) backend.Store {
	return rawStore{f: f}
}

// Open opens an existing file or block device at path for read-write
// access. The path must already exist.
func Open(path string) (backend.Store, error) {
	if path == "" {
		return nil, errors.New("file: must pass a device or file path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s does not exist", path)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("file: could not open %s: %w", path, err)
	}
	return rawStore{f: f}, nil
}

// Create creates a new image file of the given size at path. The path
// must not already exist. The file is materialized atomically via a
// temp-file-then-rename sequence so that a crash mid-truncate never
// leaves a partially sized image visible at path.
func Create(path string, size uint64) (backend.Store, error) {
	if path == "" {
		return nil, errors.New("file: must pass a device or file path")
	}
	if size == 0 {
		return nil, errors.New("file: must pass a non-zero size")
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file: %s already exists", path)
	}

	t, err := renameio.TempFile("", path)
	if err != nil {
		return nil, fmt.Errorf("file: could not create temp file for %s: %w", path, err)
	}
	if err := t.Truncate(int64(size)); err != nil {
		_ = t.Cleanup()
		return nil, fmt.Errorf("file: could not size %s to %d bytes: %w", path, size, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return nil, fmt.Errorf("file: could not materialize %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("file: could not reopen %s after create: %w", path, err)
	}
	return rawStore{f: f}, nil
}

func (s rawStore) Write(offset uint64, b []byte) error {
	n, err := s.f.WriteAt(b, int64(offset))
	if err != nil {
		return fmt.Errorf("file: write at %d: %w", offset, err)
	}
	if n != len(b) {
		return fmt.Errorf("%w: wrote %d of %d bytes at offset %d", backend.ErrShortReadWrite, n, len(b), offset)
	}
	return nil
}

func (s rawStore) Read(offset, length uint64) ([]byte, error) {
	b := make([]byte, length)
	n, err := s.f.ReadAt(b, int64(offset))
	if err != nil && uint64(n) != length {
		return nil, fmt.Errorf("file: read at %d: %w", offset, err)
	}
	if uint64(n) != length {
		return nil, fmt.Errorf("%w: read %d of %d bytes at offset %d", backend.ErrShortReadWrite, n, length, offset)
	}
	return b, nil
}

func (s rawStore) Zero(start, end uint64) error {
	if end < start {
		return fmt.Errorf("file: zero range [%d,%d) is inverted", start, end)
	}
	const chunk = 1 << 20 // 1 MiB of zeros reused across writes
	buf := make([]byte, chunk)
	for off := start; off < end; {
		n := end - off
		if n > chunk {
			n = chunk
		}
		if err := s.Write(off, buf[:n]); err != nil {
			return err
		}
		off += n
	}
	return nil
}

func (s rawStore) Size() (uint64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("file: stat: %w", err)
	}
	if info.Mode()&os.ModeDevice != 0 {
		if size, err, supported := blockDeviceSize(s.f); supported {
			return size, err
		}
	}
	if info.Size() < 0 {
		return 0, fmt.Errorf("file: negative size reported")
	}
	return uint64(info.Size()), nil
}

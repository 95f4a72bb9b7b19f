package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned when an image exceeds the store's size limit.
var ErrTooLarge = errors.New("sink: image too large")

// Store persists encoded framebuffer images under a key.
type Store interface {
	// Put stores size bytes read from r and returns where they went.
	Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (location string, err error)
}

// DiskStore writes images into a local directory. Keys may contain
// slashes; missing subdirectories are created.
type DiskStore struct {
	dir     string
	maxSize int64
}

// NewDiskStore creates the directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

// WithMaxSize limits the size of a single image (0 = no limit).
func (s *DiskStore) WithMaxSize(n int64) *DiskStore {
	s.maxSize = n
	return s
}

// Dir returns the output directory.
func (s *DiskStore) Dir() string { return s.dir }

// Put writes the image to a temporary file next to its destination and
// renames it into place, so readers never see a partial image.
func (s *DiskStore) Put(_ context.Context, key, _ string, size int64, r io.Reader) (string, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".partial-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()

	var reader io.Reader = r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxSize > 0 && written > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalFS stores blobs as flat files under a single directory.
type LocalFS struct {
	root string
}

// NewLocalFS creates the root directory if needed and returns a store
// rooted there.
func NewLocalFS(root string) (*LocalFS, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalFS{root: root}, nil
}

// Save writes the reader to disk and reports the number of bytes stored.
// A partial write is cleaned up before the error is returned.
func (l *LocalFS) Save(_ context.Context, filename string, r io.Reader) (int64, error) {
	path, err := l.resolve(filename)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, fmt.Errorf("create blob: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write blob: %w", err)
	}
	return n, nil
}

// Open returns a seekable reader for a stored blob.
func (l *LocalFS) Open(_ context.Context, filename string) (io.ReadSeekCloser, error) {
	path, err := l.resolve(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Remove deletes a stored blob. Removing a missing blob is not an error.
func (l *LocalFS) Remove(_ context.Context, filename string) error {
	path, err := l.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// Path exposes the absolute location of a blob for handlers that stream
// straight off disk.
func (l *LocalFS) Path(filename string) (string, error) {
	return l.resolve(filename)
}

// resolve rejects anything that is not a bare filename.
func (l *LocalFS) resolve(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", ErrInvalidFilename
	}
	return filepath.Join(l.root, filename), nil
}

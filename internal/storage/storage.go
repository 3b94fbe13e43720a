package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidFilename is returned for names that would escape the store.
var ErrInvalidFilename = errors.New("invalid filename")

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("file not found")

// Store is the blob store behind uploaded files. Keys are flat generated
// filenames, never client-supplied paths.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (int64, error)
	Open(ctx context.Context, filename string) (io.ReadSeekCloser, error)
	Remove(ctx context.Context, filename string) error
}

// GenerateName produces a fresh storage key that keeps only the original
// file's extension. Uploaded names never reach the filesystem.
func GenerateName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return uuid.NewString() + ext
}

// Package storage provides the disk-backed blob sink. Files are stored under
// a single content directory with a timestamp-prefixed key and served back
// under the /uploads web path.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pinsync/pinsync-server/internal/core/ports"
)

// DiskStore writes blobs to a local directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the content directory if needed and returns a store
// rooted there.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the content directory, for static file serving.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes the content under a timestamp-prefixed key derived from the
// original filename and returns the key plus the web path clients use to
// retrieve it.
func (s *DiskStore) Save(_ context.Context, filename string, content io.Reader) (ports.StoredBlob, error) {
	// Base strips any client-supplied directory components.
	key := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(filename))

	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return ports.StoredBlob{}, fmt.Errorf("create blob: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return ports.StoredBlob{}, fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return ports.StoredBlob{}, fmt.Errorf("close blob: %w", err)
	}

	return ports.StoredBlob{Key: key, Path: "/uploads/" + key}, nil
}

// Remove deletes a stored blob by key. Removing a key that no longer exists
// is not an error.
func (s *DiskStore) Remove(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

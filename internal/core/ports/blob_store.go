package ports

import (
	"context"
	"io"
)

// StoredBlob identifies a file placed in the blob store. Key is the store's
// internal handle (used for removal); Path is the web-retrievable location
// persisted on domain records.
type StoredBlob struct {
	Key  string
	Path string
}

// BlobStore is the content sink for raw uploaded bytes. Domain records hold
// the returned path, never the bytes.
type BlobStore interface {
	// Save writes the content under a store-chosen key derived from filename.
	Save(ctx context.Context, filename string, content io.Reader) (StoredBlob, error)
	// Remove deletes a previously saved blob. Used to clean up when record
	// creation fails after the blob write.
	Remove(ctx context.Context, key string) error
}

package ports

import (
	"context"
	"io"

	"github.com/pinsync/pinsync-server/internal/core/domain"
)

// CreateUploadInput carries the metadata and file content for a new upload.
// The file is placed into the blob store before the record is created; a
// failed blob write must not leave a dangling record and vice versa.
type CreateUploadInput struct {
	Name        string
	Category    string
	Description string
	Website     string
	Uploader    string
	Filename    string
	Content     io.Reader
}

// UploadService implements upload creation, listing, and deletion.
type UploadService interface {
	CreateUpload(ctx context.Context, input CreateUploadInput) (*domain.Upload, error)
	ListUploads(ctx context.Context) ([]*domain.Upload, error)
	DeleteUpload(ctx context.Context, id string) (*domain.Upload, error)
}

// EngagementService enforces the counter mutation rules for uploads.
type EngagementService interface {
	// ToggleLike flips the username's like on the upload. Repeated calls
	// alternate state; there is no separate like/unlike operation.
	ToggleLike(ctx context.Context, uploadID, username string) (*domain.Upload, error)
	// RecordDownload increments the download counter by one.
	RecordDownload(ctx context.Context, uploadID string) (*domain.Upload, error)
}

package ports

import (
	"context"

	"github.com/pinsync/pinsync-server/internal/core/domain"
)

// UploadRepository defines persistence operations for upload records.
//
// ToggleLike and IncrementDownloads are the atomic mutation unit: concurrent
// calls on the same upload id must not interleave their read-modify-write,
// while calls on different ids proceed independently. Implementations use
// single-document atomic updates (or equivalent per-record exclusion) rather
// than fetch-then-save.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (*domain.Upload, error)
	FindByID(ctx context.Context, id string) (*domain.Upload, error)
	// List returns all uploads in insertion order.
	List(ctx context.Context) ([]*domain.Upload, error)
	// ToggleLike flips the username's membership in likedBy and adjusts
	// likeCount by the same step, atomically. Returns the post-mutation record.
	ToggleLike(ctx context.Context, id string, username string) (*domain.Upload, error)
	// IncrementDownloads adds one to the download counter atomically and
	// returns the post-mutation record.
	IncrementDownloads(ctx context.Context, id string) (*domain.Upload, error)
	// Delete removes the upload and returns the deleted record.
	Delete(ctx context.Context, id string) (*domain.Upload, error)
}

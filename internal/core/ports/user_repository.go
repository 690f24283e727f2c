package ports

import (
	"context"

	"github.com/pinsync/pinsync-server/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
// All operations are single-record; no invariant spans two users, so no
// multi-record transactions are required. Uniqueness of the username is
// enforced by the store itself so that two concurrent registrations with the
// same name cannot both succeed.
type UserRepository interface {
	// Create persists a new user. Returns domain.ErrUserExists when the
	// username is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	// UpdateLikedImages replaces the user's liked-image id list. A nil slice
	// leaves the stored list unchanged; an empty non-nil slice clears it.
	UpdateLikedImages(ctx context.Context, id string, likedImages []string) (*domain.User, error)
	// SetApproval flips the approved flag. Only legal when the target's role
	// is artist; returns domain.ErrInvalidRole otherwise.
	SetApproval(ctx context.Context, id string, approved bool) (*domain.User, error)
	// Delete removes the user and returns the deleted record.
	Delete(ctx context.Context, id string) (*domain.User, error)
}

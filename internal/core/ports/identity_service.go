package ports

import (
	"context"
	"io"

	"github.com/pinsync/pinsync-server/internal/core/domain"
)

// PortfolioFile is an uploaded portfolio file as received by the transport
// layer. The identity service places it into the blob store before the user
// record is created.
type PortfolioFile struct {
	Filename string
	Content  io.Reader
}

// RegisterInput carries all data needed to create an account. Role is
// restricted to normal and artist at this boundary; admin accounts are
// provisioned through a separate privileged path at startup.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Role      string
	Portfolio []PortfolioFile
}

// IdentityService implements account registration, authentication, and the
// admin-gated user operations.
type IdentityService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	// Login verifies the password against the stored hash and returns a signed
	// token alongside the user.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateLikedImages(ctx context.Context, id string, likedImages []string) (*domain.User, error)
	// DeleteUser removes the target account. adminID must resolve to an admin.
	DeleteUser(ctx context.Context, targetID, adminID string) (*domain.User, error)
}

// ApprovalService runs the artist approval state machine. A decision flips
// the target's approved flag and dispatches a notification exactly once;
// notification failures never affect the returned result.
type ApprovalService interface {
	Decide(ctx context.Context, targetID string, approved bool, adminID string) (*domain.User, error)
}

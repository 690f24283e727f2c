package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pinsync/pinsync-server/internal/core/domain"
	"github.com/pinsync/pinsync-server/internal/core/ports"
	"github.com/pinsync/pinsync-server/internal/metrics"
)

const maxPortfolioFiles = 10

// IdentityService implements registration, login, and user administration.
type IdentityService struct {
	repo      ports.UserRepository
	blobs     ports.BlobStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
}

func NewIdentityService(repo ports.UserRepository, blobs ports.BlobStore, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *IdentityService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &IdentityService{repo: repo, blobs: blobs, jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger}
}

// Register creates an account. Artists start unapproved and may attach up to
// ten portfolio files, which are written to the blob store before the record
// is created. If the record insert fails, the stored blobs are removed again.
func (s *IdentityService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	if input.Username == "" || input.Password == "" {
		return nil, domain.ErrMissingFields
	}

	role := input.Role
	if role == "" {
		role = domain.RoleNormal
	}
	// Admin accounts are never creatable through public registration.
	if role != domain.RoleNormal && role != domain.RoleArtist {
		return nil, domain.ErrInvalidRole
	}

	if len(input.Portfolio) > maxPortfolioFiles {
		return nil, domain.ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var portfolio []domain.PortfolioItem
	var storedKeys []string
	if role == domain.RoleArtist {
		for _, f := range input.Portfolio {
			blob, err := s.blobs.Save(ctx, f.Filename, f.Content)
			if err != nil {
				s.removeBlobs(ctx, storedKeys)
				return nil, fmt.Errorf("store portfolio file: %w", err)
			}
			storedKeys = append(storedKeys, blob.Key)
			portfolio = append(portfolio, domain.PortfolioItem{Filename: blob.Key, Path: blob.Path})
		}
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         role,
		Approved:     role != domain.RoleArtist,
		LikedImages:  []string{},
		Portfolio:    portfolio,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		s.removeBlobs(ctx, storedKeys)
		return nil, err
	}

	metrics.UsersRegisteredTotal.WithLabelValues(role).Inc()
	s.logger.Info().Str("username", created.Username).Str("role", created.Role).Bool("approved", created.Approved).Msg("user registered")
	return created, nil
}

// Login verifies the password against the stored bcrypt hash and issues a
// signed token. The credential is never compared in plaintext.
func (s *IdentityService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrMissingFields
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if err == domain.ErrUserNotFound {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return token, user, nil
}

func (s *IdentityService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.List(ctx)
}

func (s *IdentityService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.FindByUsername(ctx, username)
}

func (s *IdentityService) UpdateLikedImages(ctx context.Context, id string, likedImages []string) (*domain.User, error) {
	return s.repo.UpdateLikedImages(ctx, id, likedImages)
}

// DeleteUser removes the target account. The acting user must resolve to an
// admin; anyone else gets ErrForbidden and the target is untouched.
func (s *IdentityService) DeleteUser(ctx context.Context, targetID, adminID string) (*domain.User, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	deleted, err := s.repo.Delete(ctx, targetID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", deleted.Username).Str("admin_id", adminID).Msg("user deleted")
	return deleted, nil
}

func (s *IdentityService) requireAdmin(ctx context.Context, adminID string) error {
	admin, err := s.repo.FindByID(ctx, adminID)
	if err != nil || !admin.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

func (s *IdentityService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func (s *IdentityService) removeBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.blobs.Remove(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to remove orphaned blob")
		}
	}
}

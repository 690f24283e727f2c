package domain

import (
	"errors"
	"time"
)

const (
	RoleNormal = "normal"
	RoleArtist = "artist"
	RoleAdmin  = "admin"
)

var ErrUserExists = errors.New("username already exists")
var ErrUserNotFound = errors.New("user not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrInvalidRole = errors.New("invalid role")
var ErrForbidden = errors.New("admin access required")
var ErrMissingFields = errors.New("missing required fields")

// PortfolioItem references a file placed in the blob store during artist registration.
type PortfolioItem struct {
	Filename string `json:"filename" bson:"filename"`
	Path     string `json:"path" bson:"path"`
}

// User models an account on the platform. Approved is only authoritative for
// artists: normal and admin accounts are approved from creation.
type User struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	Email        string          `json:"email,omitempty"`
	PasswordHash string          `json:"-"`
	Role         string          `json:"role"`
	Approved     bool            `json:"approved"`
	LikedImages  []string        `json:"likedImages"`
	Portfolio    []PortfolioItem `json:"portfolio"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// IsAdmin reports whether the user may perform admin-gated operations.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

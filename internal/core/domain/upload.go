package domain

import (
	"errors"
	"time"
)

var ErrUploadNotFound = errors.New("upload not found")

// Upload is an image record. The bytes live in the blob store; Src is the
// retrievable path handed back by it. Uploader is a weak reference by
// username: deleting the user does not cascade to their uploads.
//
// Invariant: LikeCount always equals len(LikedBy). Toggling a username's
// membership in LikedBy is the only legal way to change LikeCount, and the
// repositories perform both sides of that flip atomically.
type Upload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Src         string    `json:"src"`
	Uploader    string    `json:"uploader"`
	Website     string    `json:"website,omitempty"`
	LikeCount   int       `json:"likeCount"`
	LikedBy     []string  `json:"likedBy"`
	Downloads   int       `json:"downloads"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

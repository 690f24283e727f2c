package handler

import "github.com/pinsync/pinsync-server/internal/core/domain"

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type likedImagesRequest struct {
	LikedImages []string `json:"likedImages"`
}

// approvalRequest uses a pointer for Approved so a missing field can be told
// apart from an explicit false (rejection).
type approvalRequest struct {
	Approved *bool  `json:"approved"`
	AdminID  string `json:"adminId"`
}

type adminActionRequest struct {
	AdminID string `json:"adminId"`
}

type userResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

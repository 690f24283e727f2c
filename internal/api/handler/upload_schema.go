package handler

import "github.com/pinsync/pinsync-server/internal/core/domain"

// errorResponse documents the error envelope rendered by the central HTTP
// error handler.
type errorResponse struct {
	Message string `json:"message"`
}

type likeRequest struct {
	UserName string `json:"userName" validate:"required"`
}

type uploadResponse struct {
	Message string         `json:"message"`
	Upload  *domain.Upload `json:"upload"`
}

type messageResponse struct {
	Message string `json:"message"`
}

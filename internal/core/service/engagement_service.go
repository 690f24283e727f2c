package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pinsync/pinsync-server/internal/core/domain"
	"github.com/pinsync/pinsync-server/internal/core/ports"
	"github.com/pinsync/pinsync-server/internal/metrics"
)

// EngagementService enforces the like and download counter rules. The
// per-record atomicity lives in the repository; this layer adds logging,
// metrics, and the domain-facing contract.
type EngagementService struct {
	repo ports.UploadRepository
	log  zerolog.Logger
}

func NewEngagementService(repo ports.UploadRepository, log zerolog.Logger) *EngagementService {
	return &EngagementService{repo: repo, log: log}
}

// ToggleLike flips username's membership in the upload's likedBy set.
// Repeated calls alternate state; two calls in a row restore the record to
// its original state. The returned record reflects the post-mutation state.
func (s *EngagementService) ToggleLike(ctx context.Context, uploadID, username string) (*domain.Upload, error) {
	if username == "" {
		return nil, domain.ErrMissingFields
	}

	updated, err := s.repo.ToggleLike(ctx, uploadID, username)
	if err != nil {
		return nil, err
	}

	action := "unlike"
	if contains(updated.LikedBy, username) {
		action = "like"
	}
	metrics.LikesToggledTotal.WithLabelValues(action).Inc()

	s.log.Debug().
		Str("upload_id", uploadID).
		Str("username", username).
		Str("action", action).
		Int("like_count", updated.LikeCount).
		Msg("like toggled")

	return updated, nil
}

// RecordDownload increments the upload's download counter by one. Downloads
// are not user-attributed and only ever grow.
func (s *EngagementService) RecordDownload(ctx context.Context, uploadID string) (*domain.Upload, error) {
	updated, err := s.repo.IncrementDownloads(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	metrics.DownloadsRecordedTotal.Inc()
	s.log.Debug().Str("upload_id", uploadID).Int("downloads", updated.Downloads).Msg("download recorded")
	return updated, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

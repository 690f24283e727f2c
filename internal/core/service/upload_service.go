package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pinsync/pinsync-server/internal/core/domain"
	"github.com/pinsync/pinsync-server/internal/core/ports"
	"github.com/pinsync/pinsync-server/internal/metrics"
)

// UploadService implements upload creation, listing, and deletion.
type UploadService struct {
	repo  ports.UploadRepository
	blobs ports.BlobStore
	log   zerolog.Logger
}

func NewUploadService(repo ports.UploadRepository, blobs ports.BlobStore, log zerolog.Logger) *UploadService {
	return &UploadService{repo: repo, blobs: blobs, log: log}
}

// CreateUpload stores the file bytes first and only then creates the record,
// so a failed blob write can never leave a dangling upload. If the insert
// fails after the blob write, the stored file is removed again.
func (s *UploadService) CreateUpload(ctx context.Context, input ports.CreateUploadInput) (*domain.Upload, error) {
	if input.Name == "" || input.Category == "" || input.Uploader == "" || input.Content == nil {
		return nil, domain.ErrMissingFields
	}

	blob, err := s.blobs.Save(ctx, input.Filename, input.Content)
	if err != nil {
		return nil, fmt.Errorf("store upload file: %w", err)
	}

	upload := &domain.Upload{
		Name:        input.Name,
		Category:    input.Category,
		Description: input.Description,
		Src:         blob.Path,
		Uploader:    input.Uploader,
		Website:     input.Website,
		LikedBy:     []string{},
		UploadedAt:  time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, upload)
	if err != nil {
		if rmErr := s.blobs.Remove(ctx, blob.Key); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("key", blob.Key).Msg("failed to remove orphaned blob")
		}
		return nil, err
	}

	metrics.UploadsCreatedTotal.Inc()
	s.log.Info().Str("upload_id", created.ID).Str("name", created.Name).Str("uploader", created.Uploader).Msg("upload created")
	return created, nil
}

func (s *UploadService) ListUploads(ctx context.Context) ([]*domain.Upload, error) {
	return s.repo.List(ctx)
}

func (s *UploadService) DeleteUpload(ctx context.Context, id string) (*domain.Upload, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("upload_id", id).Msg("upload deleted")
	return deleted, nil
}

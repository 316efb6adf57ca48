package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/gcp"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

// ImageService removes single training samples: row, label counter, then
// the storage object.
type ImageService interface {
	Delete(ctx context.Context, id uuid.UUID) error
}

type imageService struct {
	log    *logger.Logger
	images repos.ImageRepo
	labels repos.LabelRepo
	bucket gcp.BucketService
}

func NewImageService(
	baseLog *logger.Logger,
	images repos.ImageRepo,
	labels repos.LabelRepo,
	bucket gcp.BucketService,
) ImageService {
	return &imageService{
		log:    baseLog.With("service", "ImageService"),
		images: images,
		labels: labels,
		bucket: bucket,
	}
}

func (s *imageService) Delete(ctx context.Context, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	img, err := s.images.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if img == nil {
		return fmt.Errorf("image %s: %w", id, errs.ErrNotFound)
	}

	if err := s.images.Delete(dbc, img.ID); err != nil {
		return err
	}
	if _, err := s.labels.AdjustImageCount(dbc, img.LabelKey, -1); err != nil {
		return err
	}

	if img.UploadPath != "" {
		if err := s.bucket.DeleteObject(ctx, img.UploadPath); err != nil {
			s.log.Warn("Image object delete failed", "key", img.UploadPath, "error", err)
		}
	}
	s.log.Info("Image deleted", "image", img.ID, "label_key", img.LabelKey)
	return nil
}

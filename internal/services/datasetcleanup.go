package services

import (
	"context"
	"fmt"

	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/gcp"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

const cleanupBatchSize = 100

// DatasetCleanupService tears down everything hanging off a dataset after
// the dataset row itself is gone: collaborators, labels (images first),
// models, operations, then the storage objects. The four cascades are
// isolated from each other — one failing leaves a partial cleanup to pick
// up on a retry, never a wedged delete.
type DatasetCleanupService interface {
	CascadeDeleteDataset(ctx context.Context, ds *domain.Dataset) error
	CascadeDeleteLabel(ctx context.Context, label *domain.Label) error
}

type datasetCleanupService struct {
	log           *logger.Logger
	collaborators repos.CollaboratorRepo
	labels        repos.LabelRepo
	images        repos.ImageRepo
	models        repos.ModelRepo
	ops           repos.OperationRepo
	bucket        gcp.BucketService
}

func NewDatasetCleanupService(
	baseLog *logger.Logger,
	collaborators repos.CollaboratorRepo,
	labels repos.LabelRepo,
	images repos.ImageRepo,
	models repos.ModelRepo,
	ops repos.OperationRepo,
	bucket gcp.BucketService,
) DatasetCleanupService {
	return &datasetCleanupService{
		log:           baseLog.With("service", "DatasetCleanupService"),
		collaborators: collaborators,
		labels:        labels,
		images:        images,
		models:        models,
		ops:           ops,
		bucket:        bucket,
	}
}

func (s *datasetCleanupService) CascadeDeleteDataset(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil {
		return fmt.Errorf("dataset required: %w", errs.ErrInvalidArgument)
	}
	dbc := dbctx.Context{Ctx: ctx}
	failures := 0

	for {
		n, err := s.collaborators.DeleteBatchByDataset(dbc, ds.ID, cleanupBatchSize)
		if err != nil {
			s.log.Error("Collaborator cascade failed", "dataset", ds.Name, "error", err)
			failures++
			break
		}
		if n == 0 {
			break
		}
	}

	labels, err := s.labels.ListByDataset(dbc, ds.ID)
	if err != nil {
		s.log.Error("Label listing failed during cascade", "dataset", ds.Name, "error", err)
		failures++
	} else {
		for _, label := range labels {
			if err := s.CascadeDeleteLabel(ctx, label); err != nil {
				s.log.Error("Label cascade failed", "dataset", ds.Name, "label", label.Name, "error", err)
				failures++
			}
		}
		for {
			n, err := s.labels.DeleteBatchByDataset(dbc, ds.ID, cleanupBatchSize)
			if err != nil {
				s.log.Error("Label delete failed during cascade", "dataset", ds.Name, "error", err)
				failures++
				break
			}
			if n == 0 {
				break
			}
		}
	}

	for {
		n, err := s.models.DeleteBatchByDataset(dbc, ds.AutomlID, cleanupBatchSize)
		if err != nil {
			s.log.Error("Model cascade failed", "dataset", ds.Name, "error", err)
			failures++
			break
		}
		if n == 0 {
			break
		}
	}

	for {
		n, err := s.ops.DeleteBatchByDataset(dbc, ds.AutomlID, cleanupBatchSize)
		if err != nil {
			s.log.Error("Operation cascade failed", "dataset", ds.Name, "error", err)
			failures++
			break
		}
		if n == 0 {
			break
		}
	}

	for _, prefix := range []string{SamplePrefix(ds.Name), VideoPrefix(ds.Name)} {
		deleted, err := s.bucket.DeletePrefix(ctx, prefix)
		if err != nil {
			s.log.Error("Storage sweep failed", "dataset", ds.Name, "prefix", prefix, "error", err)
			failures++
			continue
		}
		if deleted > 0 {
			s.log.Info("Storage objects removed", "dataset", ds.Name, "prefix", prefix, "deleted", deleted)
		}
	}

	if failures > 0 {
		return fmt.Errorf("dataset cascade for %q finished with %d failed branches", ds.Name, failures)
	}
	s.log.Info("Dataset cascade complete", "dataset", ds.Name, "automl_id", ds.AutomlID)
	return nil
}

// CascadeDeleteLabel removes the label's image rows and their storage
// objects. The label row itself belongs to the caller.
func (s *datasetCleanupService) CascadeDeleteLabel(ctx context.Context, label *domain.Label) error {
	if label == nil {
		return fmt.Errorf("label required: %w", errs.ErrInvalidArgument)
	}
	dbc := dbctx.Context{Ctx: ctx}

	for {
		batch, err := s.images.DeleteBatchByLabel(dbc, label.ID, cleanupBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, img := range batch {
			if img.UploadPath == "" {
				continue
			}
			if err := s.bucket.DeleteObject(ctx, img.UploadPath); err != nil {
				s.log.Warn("Image object delete failed", "key", img.UploadPath, "error", err)
			}
		}
	}
}

package services

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/platform/gcp"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

// StageResult says what a lifecycle update did, so callers (and tests) see
// the outcome as data instead of inferring it from side effects.
type StageResult int

const (
	// StageSkipped: nothing to do — not a completion transition, an unknown
	// type, or another trigger already claimed the next stage.
	StageSkipped StageResult = iota
	// StageAdvanced: the next pipeline stage was submitted and recorded.
	StageAdvanced
	// StageTerminal: the pipeline finished; the export was resolved.
	StageTerminal
	// StageFailed: the stage's work was attempted and failed; no record was
	// written. The failure is not retried here.
	StageFailed
)

func (r StageResult) String() string {
	switch r {
	case StageSkipped:
		return "skipped"
	case StageAdvanced:
		return "advanced"
	case StageTerminal:
		return "terminal"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("StageResult(%d)", int(r))
	}
}

// LifecycleCoordinator reacts to operation completions observed by the
// poller and drives the pipeline forward one stage at a time:
// IMPORT_DATA -> TRAIN_MODEL -> EXPORT_MODEL -> resolved model.
type LifecycleCoordinator interface {
	HandleUpdate(ctx context.Context, before, after *domain.Operation) (StageResult, error)
}

type lifecycleCoordinator struct {
	log      *logger.Logger
	ops      repos.OperationRepo
	datasets repos.DatasetRepo
	training TrainingService
	resolver ExportResolver
	bucket   gcp.BucketService
	notifier OwnerNotifier
}

func NewLifecycleCoordinator(
	baseLog *logger.Logger,
	ops repos.OperationRepo,
	datasets repos.DatasetRepo,
	training TrainingService,
	resolver ExportResolver,
	bucket gcp.BucketService,
	notifier OwnerNotifier,
) LifecycleCoordinator {
	return &lifecycleCoordinator{
		log:      baseLog.With("service", "LifecycleCoordinator"),
		ops:      ops,
		datasets: datasets,
		training: training,
		resolver: resolver,
		bucket:   bucket,
		notifier: notifier,
	}
}

func (c *lifecycleCoordinator) HandleUpdate(ctx context.Context, before, after *domain.Operation) (StageResult, error) {
	if before == nil || after == nil {
		return StageSkipped, nil
	}
	// Only the false->true edge advances the pipeline; re-delivery of an
	// already-done record is a no-op.
	if before.Done || !after.Done {
		return StageSkipped, nil
	}

	switch after.Type {
	case domain.OperationImportData:
		return c.handleImportDone(ctx, after)
	case domain.OperationTrainModel:
		return c.handleTrainDone(ctx, after)
	case domain.OperationExportModel:
		return c.handleExportDone(ctx, after)
	default:
		c.log.Warn("Operation completed with unknown type", "operation", after.Name, "type", after.Type)
		return StageSkipped, nil
	}
}

func (c *lifecycleCoordinator) handleImportDone(ctx context.Context, after *domain.Operation) (StageResult, error) {
	budget := after.TrainingBudget
	if budget <= 0 {
		budget = DefaultTrainBudget
	}

	meta, err := c.training.StartTraining(ctx, after.DatasetID, budget, "")
	if err != nil {
		c.log.Error("Training submission failed",
			"dataset_id", after.DatasetID,
			"source_operation", after.Name,
			"error", err,
		)
		return StageFailed, err
	}

	return c.claimStage(ctx, &domain.Operation{
		Name:            meta.Name,
		Type:            domain.OperationTrainModel,
		DatasetID:       after.DatasetID,
		TrainingBudget:  budget,
		SourceOperation: after.Name,
		Metadata:        datatypes.JSON(meta.Metadata),
	})
}

func (c *lifecycleCoordinator) handleTrainDone(ctx context.Context, after *domain.Operation) (StageResult, error) {
	destination := fmt.Sprintf("gs://%s/%s", c.bucket.BucketName(), ExportPrefix(after.DatasetID))

	meta, err := c.training.ExportLatestModel(ctx, after.DatasetID, destination)
	if err != nil {
		c.log.Error("Export submission failed",
			"dataset_id", after.DatasetID,
			"source_operation", after.Name,
			"error", err,
		)
		return StageFailed, err
	}

	return c.claimStage(ctx, &domain.Operation{
		Name:            meta.Name,
		Type:            domain.OperationExportModel,
		DatasetID:       after.DatasetID,
		TrainingBudget:  after.TrainingBudget,
		SourceOperation: after.Name,
		Metadata:        datatypes.JSON(meta.Metadata),
	})
}

func (c *lifecycleCoordinator) handleExportDone(ctx context.Context, after *domain.Operation) (StageResult, error) {
	model, err := c.resolver.Resolve(ctx, after.DatasetID)
	if err != nil {
		c.log.Error("Export resolution failed",
			"dataset_id", after.DatasetID,
			"source_operation", after.Name,
			"error", err,
		)
		return StageFailed, err
	}

	ds, err := c.datasets.GetByAutomlID(dbctx.Context{Ctx: ctx}, after.DatasetID)
	if err != nil || ds == nil {
		c.log.Warn("Owner lookup failed after export, skipping push",
			"dataset_id", after.DatasetID,
			"error", err,
		)
		return StageTerminal, nil
	}
	if err := c.notifier.NotifyTrainingComplete(ctx, ds); err != nil {
		c.log.Warn("Owner push failed", "dataset", ds.Name, "error", err)
	}

	c.log.Info("Pipeline complete",
		"dataset_id", after.DatasetID,
		"model_id", model.ID,
		"model_path", model.ModelPath,
	)
	return StageTerminal, nil
}

func (c *lifecycleCoordinator) claimStage(ctx context.Context, next *domain.Operation) (StageResult, error) {
	claimed, err := c.ops.ClaimNextStage(dbctx.Context{Ctx: ctx}, next)
	if err != nil {
		c.log.Error("Stage claim failed",
			"type", next.Type,
			"source_operation", next.SourceOperation,
			"error", err,
		)
		return StageFailed, err
	}
	if !claimed {
		c.log.Info("Stage already claimed, skipping",
			"type", next.Type,
			"source_operation", next.SourceOperation,
		)
		return StageSkipped, nil
	}
	c.log.Info("Stage advanced",
		"type", next.Type,
		"operation", next.Name,
		"source_operation", next.SourceOperation,
	)
	return StageAdvanced, nil
}

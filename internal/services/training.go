package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/automl"
	"github.com/visionforge/classifier-backend/internal/platform/gcp"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

const (
	DefaultModelType   = "mobile-high-accuracy-1"
	DefaultTrainBudget = 1
)

// TrainingService is the single submission path to the provider; both the
// HTTP handlers and the lifecycle coordinator go through it, so defaults
// and model selection behave the same no matter who asks.
type TrainingService interface {
	ImportDataset(ctx context.Context, datasetID, datasetName string) (*automl.OperationMetadata, error)
	StartTraining(ctx context.Context, datasetID string, trainBudget int, modelType string) (*automl.OperationMetadata, error)
	ExportModel(ctx context.Context, modelID, gcsPath string) (*automl.OperationMetadata, error)
	ExportLatestModel(ctx context.Context, datasetID, gcsPath string) (*automl.OperationMetadata, error)
}

type trainingService struct {
	log     *logger.Logger
	gateway automl.Client
	bucket  gcp.BucketService
}

func NewTrainingService(baseLog *logger.Logger, gateway automl.Client, bucket gcp.BucketService) TrainingService {
	return &trainingService{
		log:     baseLog.With("service", "TrainingService"),
		gateway: gateway,
		bucket:  bucket,
	}
}

// ImportDataset submits the label manifest for ingestion into the provider
// dataset. The manifest is expected at datasets/{name}/labels.csv.
func (s *trainingService) ImportDataset(ctx context.Context, datasetID, datasetName string) (*automl.OperationMetadata, error) {
	if strings.TrimSpace(datasetID) == "" {
		return nil, fmt.Errorf("datasetId required: %w", errs.ErrInvalidArgument)
	}
	if strings.TrimSpace(datasetName) == "" {
		return nil, fmt.Errorf("dataset name required: %w", errs.ErrInvalidArgument)
	}

	manifestURI := fmt.Sprintf("gs://%s/%s", s.bucket.BucketName(), LabelFileKey(datasetName))
	meta, err := s.gateway.ImportData(ctx, datasetID, []string{manifestURI})
	if err != nil {
		return nil, err
	}
	s.log.Info("Import submitted", "dataset_id", datasetID, "manifest", manifestURI, "operation", meta.Name)
	return meta, nil
}

func (s *trainingService) StartTraining(ctx context.Context, datasetID string, trainBudget int, modelType string) (*automl.OperationMetadata, error) {
	if strings.TrimSpace(datasetID) == "" {
		return nil, fmt.Errorf("datasetId required: %w", errs.ErrInvalidArgument)
	}
	if trainBudget <= 0 {
		trainBudget = DefaultTrainBudget
	}
	if strings.TrimSpace(modelType) == "" {
		modelType = DefaultModelType
	}

	displayName := "v" + time.Now().Format("20060102150405")
	meta, err := s.gateway.CreateModel(ctx, datasetID, displayName, trainBudget, modelType)
	if err != nil {
		return nil, err
	}
	s.log.Info("Training submitted",
		"dataset_id", datasetID,
		"display_name", displayName,
		"train_budget", trainBudget,
		"model_type", modelType,
		"operation", meta.Name,
	)
	return meta, nil
}

func (s *trainingService) ExportModel(ctx context.Context, modelID, gcsPath string) (*automl.OperationMetadata, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, fmt.Errorf("modelId required: %w", errs.ErrInvalidArgument)
	}
	if strings.TrimSpace(gcsPath) == "" {
		return nil, fmt.Errorf("gcsPath required: %w", errs.ErrInvalidArgument)
	}
	meta, err := s.gateway.ExportModel(ctx, modelID, gcsPath)
	if err != nil {
		return nil, err
	}
	s.log.Info("Export submitted", "model_id", modelID, "destination", gcsPath, "operation", meta.Name)
	return meta, nil
}

// ExportLatestModel picks the newest on-device model trained from the
// dataset and submits a tflite export for it.
func (s *trainingService) ExportLatestModel(ctx context.Context, datasetID, gcsPath string) (*automl.OperationMetadata, error) {
	if strings.TrimSpace(datasetID) == "" {
		return nil, fmt.Errorf("datasetId required: %w", errs.ErrInvalidArgument)
	}

	models, err := s.gateway.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	candidates := models[:0:0]
	for _, m := range models {
		if m.DatasetID != datasetID {
			continue
		}
		if m.ImageClassificationModelMetadata == nil ||
			!strings.HasPrefix(m.ImageClassificationModelMetadata.ModelType, "mobile-") {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no exportable model for dataset %s: %w", datasetID, errs.ErrNotFound)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreateTime > candidates[j].CreateTime
	})
	latest := candidates[0]

	modelID := latest.Name
	if idx := strings.LastIndex(modelID, "/"); idx >= 0 {
		modelID = modelID[idx+1:]
	}
	s.log.Info("Latest model selected for export",
		"dataset_id", datasetID,
		"model", latest.Name,
		"display_name", latest.DisplayName,
		"create_time", latest.CreateTime,
	)
	return s.ExportModel(ctx, modelID, gcsPath)
}

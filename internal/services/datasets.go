package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/automl"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

// Dataset names double as storage path prefixes and provider display
// names, so only filesystem-and-URL-safe characters are allowed.
var datasetNamePattern = regexp.MustCompile(`^[a-zA-Z_0-9]+$`)

type CreateDatasetRequest struct {
	Name             string `json:"name"`
	OwnerDeviceToken string `json:"device_token"`
}

// DatasetService pairs the provider dataset with the local record. Creation
// registers both; deletion removes both and hands the orphaned children to
// the cleanup cascade.
type DatasetService interface {
	Create(ctx context.Context, req CreateDatasetRequest) (*domain.Dataset, error)
	List(ctx context.Context) ([]*domain.Dataset, error)
	Get(ctx context.Context, key uuid.UUID) (*domain.Dataset, error)
	CreateLabel(ctx context.Context, datasetKey uuid.UUID, name string) (*domain.Label, error)
	Delete(ctx context.Context, key uuid.UUID) error
}

type datasetService struct {
	log      *logger.Logger
	datasets repos.DatasetRepo
	labels   repos.LabelRepo
	gateway  automl.Client
	cleanup  DatasetCleanupService
}

func NewDatasetService(
	baseLog *logger.Logger,
	datasets repos.DatasetRepo,
	labels repos.LabelRepo,
	gateway automl.Client,
	cleanup DatasetCleanupService,
) DatasetService {
	return &datasetService{
		log:      baseLog.With("service", "DatasetService"),
		datasets: datasets,
		labels:   labels,
		gateway:  gateway,
		cleanup:  cleanup,
	}
}

func (s *datasetService) Create(ctx context.Context, req CreateDatasetRequest) (*domain.Dataset, error) {
	name := strings.TrimSpace(req.Name)
	if !datasetNamePattern.MatchString(name) {
		return nil, fmt.Errorf("dataset name must match %s: %w", datasetNamePattern.String(), errs.ErrInvalidArgument)
	}

	dbc := dbctx.Context{Ctx: ctx}
	existing, err := s.datasets.GetByName(dbc, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("dataset %q already exists: %w", name, errs.ErrInvalidArgument)
	}

	provider, err := s.gateway.CreateDataset(ctx, name)
	if err != nil {
		return nil, err
	}
	automlID := provider.Name
	if idx := strings.LastIndex(automlID, "/"); idx >= 0 {
		automlID = automlID[idx+1:]
	}

	ds := &domain.Dataset{
		Name:             name,
		AutomlID:         automlID,
		OwnerDeviceToken: strings.TrimSpace(req.OwnerDeviceToken),
	}
	if _, err := s.datasets.Create(dbc, ds); err != nil {
		return nil, err
	}
	s.log.Info("Dataset created", "dataset", name, "automl_id", automlID)
	return ds, nil
}

func (s *datasetService) List(ctx context.Context) ([]*domain.Dataset, error) {
	return s.datasets.List(dbctx.Context{Ctx: ctx})
}

func (s *datasetService) Get(ctx context.Context, key uuid.UUID) (*domain.Dataset, error) {
	ds, err := s.datasets.GetByKey(dbctx.Context{Ctx: ctx}, key)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, fmt.Errorf("dataset %s: %w", key, errs.ErrNotFound)
	}
	return ds, nil
}

func (s *datasetService) CreateLabel(ctx context.Context, datasetKey uuid.UUID, name string) (*domain.Label, error) {
	name = strings.TrimSpace(name)
	if !datasetNamePattern.MatchString(name) {
		return nil, fmt.Errorf("label name must match %s: %w", datasetNamePattern.String(), errs.ErrInvalidArgument)
	}

	dbc := dbctx.Context{Ctx: ctx}
	ds, err := s.datasets.GetByKey(dbc, datasetKey)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, fmt.Errorf("dataset %s: %w", datasetKey, errs.ErrNotFound)
	}

	existing, err := s.labels.ListByDataset(dbc, ds.ID)
	if err != nil {
		return nil, err
	}
	for _, l := range existing {
		if l.Name == name {
			return nil, fmt.Errorf("label %q already exists in dataset %q: %w", name, ds.Name, errs.ErrInvalidArgument)
		}
	}

	label, err := s.labels.Create(dbc, &domain.Label{DatasetKey: ds.ID, Name: name})
	if err != nil {
		return nil, err
	}
	s.log.Info("Label created", "dataset", ds.Name, "label", name)
	return label, nil
}

func (s *datasetService) Delete(ctx context.Context, key uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	ds, err := s.datasets.GetByKey(dbc, key)
	if err != nil {
		return err
	}
	if ds == nil {
		return fmt.Errorf("dataset %s: %w", key, errs.ErrNotFound)
	}

	if _, err := s.gateway.DeleteDataset(ctx, ds.AutomlID); err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		// Already gone on the provider side; local cleanup still applies.
		s.log.Warn("Provider dataset already absent", "dataset", ds.Name, "automl_id", ds.AutomlID)
	}

	if err := s.datasets.Delete(dbc, ds.ID); err != nil {
		return err
	}
	if err := s.cleanup.CascadeDeleteDataset(ctx, ds); err != nil {
		// The dataset row is gone; a partial cascade is retryable noise,
		// not a failed delete.
		s.log.Error("Cascade incomplete after dataset delete", "dataset", ds.Name, "error", err)
	}
	s.log.Info("Dataset deleted", "dataset", ds.Name, "automl_id", ds.AutomlID)
	return nil
}

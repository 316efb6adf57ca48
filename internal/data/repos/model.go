package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

type ModelRepo interface {
	Create(dbc dbctx.Context, m *domain.Model) (*domain.Model, error)
	ListByDataset(dbc dbctx.Context, datasetID string) ([]*domain.Model, error)
	DeleteBatchByDataset(dbc dbctx.Context, datasetID string, limit int) (int, error)
}

type modelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelRepo(db *gorm.DB, baseLog *logger.Logger) ModelRepo {
	return &modelRepo{
		db:  db,
		log: baseLog.With("repo", "ModelRepo"),
	}
}

func (r *modelRepo) Create(dbc dbctx.Context, m *domain.Model) (*domain.Model, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if m == nil {
		return nil, nil
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *modelRepo) ListByDataset(dbc dbctx.Context, datasetID string) ([]*domain.Model, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Model
	err := transaction.WithContext(dbc.Ctx).
		Where("dataset_id = ?", datasetID).
		Order("generated_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelRepo) DeleteBatchByDataset(dbc dbctx.Context, datasetID string, limit int) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if datasetID == "" {
		return 0, nil
	}
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Model{}).
		Where("dataset_id = ?", datasetID).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&domain.Model{}).Error; err != nil {
		return 0, err
	}
	return len(ids), nil
}

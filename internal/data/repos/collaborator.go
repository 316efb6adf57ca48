package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

type CollaboratorRepo interface {
	Create(dbc dbctx.Context, c *domain.Collaborator) (*domain.Collaborator, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Collaborator, error)
	ListByDataset(dbc dbctx.Context, datasetKey uuid.UUID) ([]*domain.Collaborator, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	DeleteBatchByDataset(dbc dbctx.Context, datasetKey uuid.UUID, limit int) (int, error)
}

type collaboratorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCollaboratorRepo(db *gorm.DB, baseLog *logger.Logger) CollaboratorRepo {
	return &collaboratorRepo{
		db:  db,
		log: baseLog.With("repo", "CollaboratorRepo"),
	}
}

func (r *collaboratorRepo) Create(dbc dbctx.Context, c *domain.Collaborator) (*domain.Collaborator, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if c == nil {
		return nil, nil
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *collaboratorRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Collaborator, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var c domain.Collaborator
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *collaboratorRepo) ListByDataset(dbc dbctx.Context, datasetKey uuid.UUID) ([]*domain.Collaborator, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Collaborator
	err := transaction.WithContext(dbc.Ctx).
		Where("dataset_key = ?", datasetKey).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *collaboratorRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&domain.Collaborator{}).Error
}

func (r *collaboratorRepo) DeleteBatchByDataset(dbc dbctx.Context, datasetKey uuid.UUID, limit int) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if datasetKey == uuid.Nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Collaborator{}).
		Where("dataset_key = ?", datasetKey).
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
		Delete(&domain.Collaborator{}).Error; err != nil {
		return 0, err
	}
	return len(ids), nil
}

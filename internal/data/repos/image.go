package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

type ImageRepo interface {
	CreateBatch(dbc dbctx.Context, images []*domain.Image) ([]*domain.Image, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Image, error)
	ListByLabel(dbc dbctx.Context, labelKey uuid.UUID) ([]*domain.Image, error)
	CountByLabel(dbc dbctx.Context, labelKey uuid.UUID) (int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	DeleteBatchByLabel(dbc dbctx.Context, labelKey uuid.UUID, limit int) ([]*domain.Image, error)
}

type imageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageRepo(db *gorm.DB, baseLog *logger.Logger) ImageRepo {
	return &imageRepo{
		db:  db,
		log: baseLog.With("repo", "ImageRepo"),
	}
}

func (r *imageRepo) CreateBatch(dbc dbctx.Context, images []*domain.Image) ([]*domain.Image, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(images) == 0 {
		return nil, nil
	}
	for _, img := range images {
		if img.ID == uuid.Nil {
			img.ID = uuid.New()
		}
		if img.Type == "" {
			img.Type = domain.ImageTypeTrain
		}
	}
	if err := transaction.WithContext(dbc.Ctx).CreateInBatches(images, 100).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (r *imageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Image, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var img domain.Image
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&img).Error
	if err != nil {
		return nil, err
	}
	if img.ID == uuid.Nil {
		return nil, nil
	}
	return &img, nil
}

func (r *imageRepo) ListByLabel(dbc dbctx.Context, labelKey uuid.UUID) ([]*domain.Image, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Image
	err := transaction.WithContext(dbc.Ctx).
		Where("label_key = ?", labelKey).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *imageRepo) CountByLabel(dbc dbctx.Context, labelKey uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Image{}).
		Where("label_key = ?", labelKey).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *imageRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&domain.Image{}).Error
}

// DeleteBatchByLabel removes up to limit rows and returns what it removed so
// the caller can sweep the matching storage objects.
func (r *imageRepo) DeleteBatchByLabel(dbc dbctx.Context, labelKey uuid.UUID, limit int) ([]*domain.Image, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if labelKey == uuid.Nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	var batch []*domain.Image
	err := transaction.WithContext(dbc.Ctx).
		Where("label_key = ?", labelKey).
		Limit(limit).
		Find(&batch).Error
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(batch))
	for _, img := range batch {
		ids = append(ids, img.ID)
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&domain.Image{}).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

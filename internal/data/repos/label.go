package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

type LabelRepo interface {
	Create(dbc dbctx.Context, l *domain.Label) (*domain.Label, error)
	GetByKey(dbc dbctx.Context, key uuid.UUID) (*domain.Label, error)
	ListByDataset(dbc dbctx.Context, datasetKey uuid.UUID) ([]*domain.Label, error)
	AdjustImageCount(dbc dbctx.Context, key uuid.UUID, delta int) (*domain.Label, error)
	Delete(dbc dbctx.Context, key uuid.UUID) error
	DeleteBatchByDataset(dbc dbctx.Context, datasetKey uuid.UUID, limit int) (int, error)
}

type labelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLabelRepo(db *gorm.DB, baseLog *logger.Logger) LabelRepo {
	return &labelRepo{
		db:  db,
		log: baseLog.With("repo", "LabelRepo"),
	}
}

func (r *labelRepo) Create(dbc dbctx.Context, l *domain.Label) (*domain.Label, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if l == nil {
		return nil, nil
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

func (r *labelRepo) GetByKey(dbc dbctx.Context, key uuid.UUID) (*domain.Label, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == uuid.Nil {
		return nil, nil
	}
	var l domain.Label
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", key).
		Limit(1).
		Find(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == uuid.Nil {
		return nil, nil
	}
	return &l, nil
}

func (r *labelRepo) ListByDataset(dbc dbctx.Context, datasetKey uuid.UUID) ([]*domain.Label, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Label
	err := transaction.WithContext(dbc.Ctx).
		Where("dataset_key = ?", datasetKey).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdjustImageCount applies delta to the mirrored sample count inside a
// row-locked transaction, flooring at zero.
func (r *labelRepo) AdjustImageCount(dbc dbctx.Context, key uuid.UUID, delta int) (*domain.Label, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == uuid.Nil {
		return nil, nil
	}
	var updated *domain.Label
	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var l domain.Label
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", key).
			Limit(1).
			Find(&l).Error; err != nil {
			return err
		}
		if l.ID == uuid.Nil {
			return nil
		}
		next := l.TotalImages + delta
		if next < 0 {
			next = 0
		}
		l.TotalImages = next
		l.UpdatedAt = time.Now()
		if err := tx.Model(&domain.Label{}).
			Where("id = ?", key).
			Updates(map[string]interface{}{
				"total_images": l.TotalImages,
				"updated_at":   l.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		updated = &l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *labelRepo) Delete(dbc dbctx.Context, key uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", key).
		Delete(&domain.Label{}).Error
}

func (r *labelRepo) DeleteBatchByDataset(dbc dbctx.Context, datasetKey uuid.UUID, limit int) (int, error) {
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
		Model(&domain.Label{}).
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
		Delete(&domain.Label{}).Error; err != nil {
		return 0, err
	}
	return len(ids), nil
}

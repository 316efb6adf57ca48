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

type DatasetRepo interface {
	Create(dbc dbctx.Context, d *domain.Dataset) (*domain.Dataset, error)
	GetByKey(dbc dbctx.Context, key uuid.UUID) (*domain.Dataset, error)
	GetByName(dbc dbctx.Context, name string) (*domain.Dataset, error)
	GetByAutomlID(dbc dbctx.Context, automlID string) (*domain.Dataset, error)
	List(dbc dbctx.Context) ([]*domain.Dataset, error)
	Delete(dbc dbctx.Context, key uuid.UUID) error
	AddCollaboratorEmail(dbc dbctx.Context, key uuid.UUID, email string) (*domain.Dataset, error)
	RemoveCollaboratorEmail(dbc dbctx.Context, key uuid.UUID, email string) (*domain.Dataset, error)
}

type datasetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	return &datasetRepo{
		db:  db,
		log: baseLog.With("repo", "DatasetRepo"),
	}
}

func (r *datasetRepo) Create(dbc dbctx.Context, d *domain.Dataset) (*domain.Dataset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if d == nil {
		return nil, nil
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if len(d.Collaborators) == 0 {
		d.SetCollaboratorEmails(nil)
	}
	if err := transaction.WithContext(dbc.Ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *datasetRepo) GetByKey(dbc dbctx.Context, key uuid.UUID) (*domain.Dataset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == uuid.Nil {
		return nil, nil
	}
	var d domain.Dataset
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", key).
		Limit(1).
		Find(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		return nil, nil
	}
	return &d, nil
}

func (r *datasetRepo) GetByName(dbc dbctx.Context, name string) (*domain.Dataset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if name == "" {
		return nil, nil
	}
	var d domain.Dataset
	err := transaction.WithContext(dbc.Ctx).
		Where("name = ?", name).
		Limit(1).
		Find(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		return nil, nil
	}
	return &d, nil
}

func (r *datasetRepo) GetByAutomlID(dbc dbctx.Context, automlID string) (*domain.Dataset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if automlID == "" {
		return nil, nil
	}
	var d domain.Dataset
	err := transaction.WithContext(dbc.Ctx).
		Where("automl_id = ?", automlID).
		Limit(1).
		Find(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		return nil, nil
	}
	return &d, nil
}

func (r *datasetRepo) List(dbc dbctx.Context) ([]*domain.Dataset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Dataset
	err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *datasetRepo) Delete(dbc dbctx.Context, key uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", key).
		Delete(&domain.Dataset{}).Error
}

// AddCollaboratorEmail appends to the denormalized email set under a row
// lock so concurrent invites don't clobber each other.
func (r *datasetRepo) AddCollaboratorEmail(dbc dbctx.Context, key uuid.UUID, email string) (*domain.Dataset, error) {
	return r.mutateCollaborators(dbc, key, func(emails []string) []string {
		for _, e := range emails {
			if e == email {
				return emails
			}
		}
		return append(emails, email)
	})
}

func (r *datasetRepo) RemoveCollaboratorEmail(dbc dbctx.Context, key uuid.UUID, email string) (*domain.Dataset, error) {
	return r.mutateCollaborators(dbc, key, func(emails []string) []string {
		out := emails[:0]
		for _, e := range emails {
			if e != email {
				out = append(out, e)
			}
		}
		return out
	})
}

func (r *datasetRepo) mutateCollaborators(dbc dbctx.Context, key uuid.UUID, mutate func([]string) []string) (*domain.Dataset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == uuid.Nil {
		return nil, nil
	}
	var updated *domain.Dataset
	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var d domain.Dataset
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", key).
			Limit(1).
			Find(&d).Error; err != nil {
			return err
		}
		if d.ID == uuid.Nil {
			return nil
		}
		d.SetCollaboratorEmails(mutate(d.CollaboratorEmails()))
		d.UpdatedAt = time.Now()
		if err := tx.Model(&domain.Dataset{}).
			Where("id = ?", key).
			Updates(map[string]interface{}{
				"collaborators": d.Collaborators,
				"updated_at":    d.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		updated = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

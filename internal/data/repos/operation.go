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

type OperationRepo interface {
	Create(dbc dbctx.Context, op *domain.Operation) (*domain.Operation, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Operation, error)
	ListPending(dbc dbctx.Context, opType string) ([]*domain.Operation, error)
	MarkStatus(dbc dbctx.Context, id uuid.UUID, done bool, at time.Time) (*domain.Operation, error)
	ClaimNextStage(dbc dbctx.Context, op *domain.Operation) (bool, error)
	DeleteBatchByDataset(dbc dbctx.Context, datasetID string, limit int) (int, error)
}

type operationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOperationRepo(db *gorm.DB, baseLog *logger.Logger) OperationRepo {
	return &operationRepo{
		db:  db,
		log: baseLog.With("repo", "OperationRepo"),
	}
}

func (r *operationRepo) Create(dbc dbctx.Context, op *domain.Operation) (*domain.Operation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if op == nil {
		return nil, nil
	}
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	if op.SourceOperation == "" {
		// Import records are not claimed by anyone; their own handle keeps
		// the (type, source_operation) index satisfied.
		op.SourceOperation = op.Name
	}
	if op.LastUpdated.IsZero() {
		op.LastUpdated = time.Now()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(op).Error; err != nil {
		return nil, err
	}
	return op, nil
}

func (r *operationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Operation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var op domain.Operation
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&op).Error
	if err != nil {
		return nil, err
	}
	if op.ID == uuid.Nil {
		return nil, nil
	}
	return &op, nil
}

func (r *operationRepo) ListPending(dbc dbctx.Context, opType string) ([]*domain.Operation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Operation
	err := transaction.WithContext(dbc.Ctx).
		Where("type = ? AND done = ?", opType, false).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkStatus writes the latest provider status. The done flag is monotonic:
// a false write never reverts an operation that is already done.
func (r *operationRepo) MarkStatus(dbc dbctx.Context, id uuid.UUID, done bool, at time.Time) (*domain.Operation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Operation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"done":         gorm.Expr("done OR ?", done),
			"last_updated": at,
		}).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(dbc, id)
}

// ClaimNextStage inserts the next-stage record only if no other trigger got
// there first; the unique index on (type, source_operation) arbitrates.
// Returns false when the stage was already claimed.
func (r *operationRepo) ClaimNextStage(dbc dbctx.Context, op *domain.Operation) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if op == nil || op.SourceOperation == "" {
		return false, nil
	}
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	if op.LastUpdated.IsZero() {
		op.LastUpdated = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type"}, {Name: "source_operation"}},
			DoNothing: true,
		}).
		Create(op)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *operationRepo) DeleteBatchByDataset(dbc dbctx.Context, datasetID string, limit int) (int, error) {
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
		Model(&domain.Operation{}).
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
		Delete(&domain.Operation{}).Error; err != nil {
		return 0, err
	}
	return len(ids), nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Pipeline stages, in fixed order IMPORT_DATA -> TRAIN_MODEL -> EXPORT_MODEL.
const (
	OperationImportData  = "IMPORT_DATA"
	OperationTrainModel  = "TRAIN_MODEL"
	OperationExportModel = "EXPORT_MODEL"
)

func IsOperationType(t string) bool {
	switch t {
	case OperationImportData, OperationTrainModel, OperationExportModel:
		return true
	default:
		return false
	}
}

// Operation tracks one long-running provider action. Name is the opaque
// handle handed back by AutoML; Done flips false->true exactly once (the
// poller is the only writer). SourceOperation records which completed
// operation triggered this stage; the unique index on (type,
// source_operation) is what makes duplicate stage advancement a no-op.
type Operation struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name            string         `gorm:"column:name;not null;index" json:"name"`
	Type            string         `gorm:"column:type;not null;index;index:idx_operation_stage_claim,unique" json:"type"`
	DatasetID       string         `gorm:"column:dataset_id;not null;index" json:"dataset_id"`
	Done            bool           `gorm:"column:done;not null;default:false;index" json:"done"`
	Deployed        bool           `gorm:"column:deployed;not null;default:false" json:"deployed"`
	TrainingBudget  int            `gorm:"column:training_budget;not null;default:1" json:"training_budget"`
	SourceOperation string         `gorm:"column:source_operation;not null;index:idx_operation_stage_claim,unique" json:"source_operation"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	LastUpdated     time.Time      `gorm:"column:last_updated;not null;default:now();index" json:"last_updated"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Operation) TableName() string { return "operation" }

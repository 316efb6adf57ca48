package domain

import (
	"time"

	"github.com/google/uuid"
)

// Model is a finalized export artifact: the tflite weights plus the label
// map, as resolved from the newest export folder. Immutable once written.
type Model struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetID   string    `gorm:"column:dataset_id;not null;index" json:"dataset_id"`
	ModelPath   string    `gorm:"column:model_path;not null" json:"model"`
	LabelPath   string    `gorm:"column:label_path;not null" json:"label"`
	GeneratedAt time.Time `gorm:"column:generated_at;not null" json:"generated_at"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Model) TableName() string { return "model" }

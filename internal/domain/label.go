package domain

import (
	"time"

	"github.com/google/uuid"
)

// Label is a named bucket of samples within a dataset. TotalImages mirrors
// the count of live Image rows pointing at this label and is only ever
// adjusted inside a row-locked transaction.
type Label struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetKey  uuid.UUID `gorm:"type:uuid;column:dataset_key;not null;index" json:"parent_key"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	TotalImages int       `gorm:"column:total_images;not null;default:0" json:"total_images"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Label) TableName() string { return "label" }

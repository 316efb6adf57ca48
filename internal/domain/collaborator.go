package domain

import (
	"time"

	"github.com/google/uuid"
)

// Collaborator grants a dataset to a non-owner. The owning dataset keeps a
// denormalized email set; removal of a collaborator row must also remove
// the email there (inverse-relationship maintenance).
type Collaborator struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetKey uuid.UUID `gorm:"type:uuid;column:dataset_key;not null;index" json:"parent_key"`
	Email      string    `gorm:"column:email;not null;index" json:"email"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Collaborator) TableName() string { return "collaborator" }

package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Dataset is the user-facing grouping of training data. Name doubles as the
// storage path prefix (validated against a safe character set at the HTTP
// boundary); AutomlID is the provider-side identifier. Operations and
// models join on AutomlID, labels and storage paths join on Name/ID — the
// two identifiers are never unified.
type Dataset struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name             string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	AutomlID         string         `gorm:"column:automl_id;not null;index" json:"automl_id"`
	Collaborators    datatypes.JSON `gorm:"column:collaborators;type:jsonb" json:"collaborators"`
	OwnerDeviceToken string         `gorm:"column:owner_device_token" json:"-"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Dataset) TableName() string { return "dataset" }

func (d *Dataset) CollaboratorEmails() []string {
	var out []string
	if len(d.Collaborators) == 0 {
		return out
	}
	_ = json.Unmarshal(d.Collaborators, &out)
	return out
}

func (d *Dataset) SetCollaboratorEmails(emails []string) {
	if emails == nil {
		emails = []string{}
	}
	raw, _ := json.Marshal(emails)
	d.Collaborators = datatypes.JSON(raw)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

const ImageTypeTrain = "TRAIN"

// Image is one training sample extracted from an uploaded video.
type Image struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LabelKey   uuid.UUID `gorm:"type:uuid;column:label_key;not null;index" json:"parent_key"`
	DatasetKey uuid.UUID `gorm:"type:uuid;column:dataset_key;not null;index" json:"dataset_parent_key"`
	Filename   string    `gorm:"column:filename;not null" json:"filename"`
	UploadPath string    `gorm:"column:upload_path;not null" json:"uploadPath"`
	GCSUri     string    `gorm:"column:gcs_uri" json:"gcsURI"`
	Type       string    `gorm:"column:type;not null;default:TRAIN" json:"type"`
	Uploader   string    `gorm:"column:uploader" json:"uploader"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Image) TableName() string { return "image" }

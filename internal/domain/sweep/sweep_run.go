package sweep

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SweepRun records the outcome of one abandonment sweep pass.
type SweepRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// ticker|temporal|manual|cli
	Trigger string `gorm:"not null;index" json:"trigger"`

	ReferenceTime time.Time `gorm:"not null" json:"reference_time"`
	StartedAt     time.Time `gorm:"not null;index" json:"started_at"`
	FinishedAt    time.Time `gorm:"not null" json:"finished_at"`

	Scanned   int `gorm:"not null;default:0" json:"scanned"`
	Marked    int `gorm:"not null;default:0" json:"marked"`
	Removed   int `gorm:"not null;default:0" json:"removed"`
	Untouched int `gorm:"not null;default:0" json:"untouched"`
	Failed    int `gorm:"not null;default:0" json:"failed"`

	// [{cart_id, stage, error}]
	Failures datatypes.JSON `gorm:"column:failures" json:"failures"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (SweepRun) TableName() string { return "sweep_run" }

func (r *SweepRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

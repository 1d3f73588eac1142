package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Analysis is the persisted output of a reasoning query: the full model text
// plus the structured extraction. Rows are append-only.
type Analysis struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Prompt          string         `gorm:"column:prompt;not null" json:"prompt"`
	ContextSnapshot datatypes.JSON `gorm:"column:context_snapshot" json:"context_snapshot,omitempty"`
	ResultText      string         `gorm:"column:result_text" json:"result_text,omitempty"`
	Metadata        datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
}

func (Analysis) TableName() string { return "analyses" }

func (a *Analysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Insight is the persisted output of a single-article analysis. Rows are
// append-only.
type Insight struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ArticleID uuid.UUID      `gorm:"type:uuid;not null;index" json:"article_id"`
	Article   *Article       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ArticleID;references:ID" json:"article,omitempty"`
	Agent     string         `gorm:"column:agent;not null" json:"agent"`
	Tags      datatypes.JSON `gorm:"column:tags" json:"tags,omitempty"`
	Entities  datatypes.JSON `gorm:"column:entities" json:"entities,omitempty"`
	Summary   string         `gorm:"column:summary" json:"summary,omitempty"`
	Score     float64        `gorm:"column:score" json:"score"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (Insight) TableName() string { return "insights" }

func (i *Insight) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

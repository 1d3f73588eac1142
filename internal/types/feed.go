package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Feed struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	URL         string     `gorm:"column:url;not null;uniqueIndex" json:"url"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Description string     `gorm:"column:description" json:"description,omitempty"`
	Enabled     bool       `gorm:"column:enabled;not null;default:true" json:"enabled"`
	LastFetched *time.Time `gorm:"column:last_fetched" json:"last_fetched,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Feed) TableName() string { return "feeds" }

func (f *Feed) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Article is one content revision pulled from a feed. The fingerprint over
// link+published-time is the sole dedup key: the same link republished at a
// different time is a distinct revision and is kept.
type Article struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FeedID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"feed_id"`
	Feed        *Feed          `gorm:"constraint:OnDelete:CASCADE;foreignKey:FeedID;references:ID" json:"feed,omitempty"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Link        string         `gorm:"column:link;not null;index" json:"link"`
	Fingerprint string         `gorm:"column:link_timestamp_hash;not null;uniqueIndex" json:"link_timestamp_hash"`
	Content     string         `gorm:"column:content" json:"content,omitempty"`
	Summary     string         `gorm:"column:summary" json:"summary,omitempty"`
	Author      string         `gorm:"column:author" json:"author,omitempty"`
	PublishedAt *time.Time     `gorm:"column:published_at;index" json:"published_at,omitempty"`
	FetchedAt   time.Time      `gorm:"column:fetched_at;not null" json:"fetched_at"`
	RawJSON     datatypes.JSON `gorm:"column:raw_json" json:"raw_json,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (Article) TableName() string { return "articles" }

func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

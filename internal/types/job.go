package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobType is the closed set of asynchronous work the orchestrator executes.
type JobType string

const (
	JobTypeRSSFetch        JobType = "rss_fetch"
	JobTypeArticleAnalysis JobType = "article_analysis"
	JobTypeReasoning       JobType = "reasoning"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further status transition may occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is a tracked asynchronous unit of work. Invariants enforced by the
// orchestrator, which is the only writer to a given job:
// progress never decreases while running; status only moves
// pending -> running -> completed|failed; result is set iff completed;
// error is set iff failed.
type Job struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobType   JobType        `gorm:"column:job_type;not null;index" json:"type"`
	Status    JobStatus      `gorm:"column:status;not null;index" json:"status"`
	Progress  int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	Result    datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	Error     string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// FeedFetchPayload drives a rss_fetch job: either one feed by id or every
// enabled feed.
type FeedFetchPayload struct {
	FeedID   *uuid.UUID `json:"feedId,omitempty"`
	AllFeeds bool       `json:"allFeeds,omitempty"`
}

// ArticleAnalysisPayload drives an article_analysis job.
type ArticleAnalysisPayload struct {
	ArticleID uuid.UUID `json:"articleId"`
}

// ReasoningPayload drives a reasoning job.
type ReasoningPayload struct {
	Prompt            string      `json:"prompt"`
	ContextArticleIDs []uuid.UUID `json:"contextArticleIds,omitempty"`
}

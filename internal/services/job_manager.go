package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/repos"
	"github.com/sportlens/sportlens-backend/internal/rss"
	"github.com/sportlens/sportlens-backend/internal/types"
)

// ChunkFunc receives streaming token chunks for a reasoning job. done is true
// exactly once, on the final chunk.
type ChunkFunc func(chunk string, done bool)

// JobManager creates, tracks, and executes jobs, and mirrors every persisted
// mutation to the notifier. It is the single writer for any job it executes:
// a job is picked up at most once, by the call that created it, so there is
// no claim step and no contention to arbitrate.
type JobManager struct {
	log      *logger.Logger
	jobs     repos.JobRepo
	feeds    repos.FeedRepo
	articles repos.ArticleRepo
	insights repos.InsightRepo
	analyses repos.AnalysisRepo
	rss      *rss.Service
	ollama   OllamaClient
	analysis *AnalysisService
	notify   JobNotifier
}

func NewJobManager(
	baseLog *logger.Logger,
	jobs repos.JobRepo,
	feeds repos.FeedRepo,
	articles repos.ArticleRepo,
	insights repos.InsightRepo,
	analyses repos.AnalysisRepo,
	rssService *rss.Service,
	ollama OllamaClient,
	analysis *AnalysisService,
	notify JobNotifier,
) *JobManager {
	return &JobManager{
		log:      baseLog.With("service", "JobManager"),
		jobs:     jobs,
		feeds:    feeds,
		articles: articles,
		insights: insights,
		analyses: analyses,
		rss:      rssService,
		ollama:   ollama,
		analysis: analysis,
		notify:   notify,
	}
}

// CreateJob persists a pending job and broadcasts job.created.
func (m *JobManager) CreateJob(ctx context.Context, jobType types.JobType, payload any) (*types.Job, error) {
	var raw datatypes.JSON
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal job payload: %w", err)
		}
		raw = datatypes.JSON(data)
	}
	job := &types.Job{
		JobType:  jobType,
		Status:   types.JobStatusPending,
		Progress: 0,
		Payload:  raw,
	}
	job, err := m.jobs.Create(ctx, nil, job)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	m.notify.JobCreated(job)
	return job, nil
}

func (m *JobManager) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	return m.jobs.GetByID(ctx, nil, id)
}

// ProcessJob executes a pending job to its terminal state. Calling it for a
// job that is not pending is a no-op. Every failure inside execution is
// converted into a failed job; nothing escapes to the caller's process.
func (m *JobManager) ProcessJob(ctx context.Context, id uuid.UUID) error {
	return m.ProcessJobStream(ctx, id, nil)
}

// ProcessJobStream is ProcessJob with an optional per-call chunk callback,
// used by the streaming reasoning endpoint.
func (m *JobManager) ProcessJobStream(ctx context.Context, id uuid.UUID, onChunk ChunkFunc) error {
	job, err := m.jobs.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if job.Status != types.JobStatusPending {
		return nil
	}

	m.updateJob(ctx, id, map[string]any{"status": types.JobStatusRunning})

	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Job execution panic", "job_id", id, "job_type", job.JobType, "panic", r)
			m.failJob(ctx, id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	var execErr error
	switch job.JobType {
	case types.JobTypeRSSFetch:
		execErr = m.processFeedFetch(ctx, job)
	case types.JobTypeArticleAnalysis:
		execErr = m.processArticleAnalysis(ctx, job)
	case types.JobTypeReasoning:
		execErr = m.processReasoning(ctx, job, onChunk)
	default:
		execErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}
	if execErr != nil {
		m.log.Warn("Job failed", "job_id", id, "job_type", job.JobType, "error", execErr)
		m.failJob(ctx, id, execErr.Error())
	}
	return nil
}

// CleanupOldJobs deletes terminal jobs created before now-age.
func (m *JobManager) CleanupOldJobs(ctx context.Context, age time.Duration) (int64, error) {
	count, err := m.jobs.DeleteOlderThan(ctx, nil, age, true)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		m.log.Info("Swept old jobs", "deleted", count)
	}
	return count, nil
}

// updateJob persists a state transition and mirrors it to subscribers. The
// write uses a non-cancelable context: execution may be canceled mid-job (a
// streaming client disconnecting, shutdown during a scheduled fetch) and the
// resulting failure must still land in the store, or the job would be stuck
// in a non-terminal state the retention sweep never collects.
func (m *JobManager) updateJob(ctx context.Context, id uuid.UUID, updates map[string]any) {
	ctx = context.WithoutCancel(ctx)
	if err := m.jobs.UpdateFields(ctx, nil, id, updates); err != nil {
		m.log.Warn("Failed to persist job update", "job_id", id, "error", err)
		return
	}
	m.notify.JobUpdated(id, updates)
}

func (m *JobManager) updateProgress(ctx context.Context, id uuid.UUID, progress int) {
	m.updateJob(ctx, id, map[string]any{"progress": progress})
}

func (m *JobManager) completeJob(ctx context.Context, id uuid.UUID, result any) error {
	updates := map[string]any{
		"status":   types.JobStatusCompleted,
		"progress": 100,
	}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal job result: %w", err)
		}
		updates["result"] = datatypes.JSON(data)
	}
	m.updateJob(ctx, id, updates)
	return nil
}

func (m *JobManager) failJob(ctx context.Context, id uuid.UUID, message string) {
	m.updateJob(ctx, id, map[string]any{
		"status": types.JobStatusFailed,
		"error":  message,
	})
}

func (m *JobManager) processFeedFetch(ctx context.Context, job *types.Job) error {
	var payload types.FeedFetchPayload
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("invalid feed fetch payload: %w", err)
		}
	}
	switch {
	case payload.FeedID != nil:
		return m.fetchSingleFeed(ctx, job.ID, *payload.FeedID)
	case payload.AllFeeds:
		return m.fetchAllFeeds(ctx, job.ID)
	default:
		return fmt.Errorf("no feedId or allFeeds flag provided for rss fetch job")
	}
}

func (m *JobManager) fetchSingleFeed(ctx context.Context, jobID, feedID uuid.UUID) error {
	m.updateProgress(ctx, jobID, 10)

	feed, err := m.feeds.GetByID(ctx, nil, feedID)
	if err != nil {
		return fmt.Errorf("feed %s not found", feedID)
	}

	m.updateProgress(ctx, jobID, 30)

	result, err := m.rss.FetchFeed(ctx, feed.URL)
	if err != nil {
		return err
	}

	m.updateProgress(ctx, jobID, 60)

	added, err := m.ingestItems(ctx, feed, result)
	if err != nil {
		return err
	}

	m.updateProgress(ctx, jobID, 90)

	m.log.Info("Feed fetched", "feed", result.Feed.Title, "new_articles", added, "total_seen", len(result.Items))
	return m.completeJob(ctx, jobID, map[string]any{
		"articlesAdded": added,
		"totalArticles": len(result.Items),
		"feedTitle":     result.Feed.Title,
	})
}

func (m *JobManager) fetchAllFeeds(ctx context.Context, jobID uuid.UUID) error {
	m.updateProgress(ctx, jobID, 10)

	enabled, err := m.feeds.ListEnabled(ctx, nil)
	if err != nil {
		return err
	}
	if len(enabled) == 0 {
		return m.completeJob(ctx, jobID, map[string]any{"message": "No enabled feeds found"})
	}

	var totalNew int64
	processed := 0
	for _, feed := range enabled {
		// One feed failing must not abort the rest of the batch.
		result, err := m.rss.FetchFeed(ctx, feed.URL)
		if err != nil {
			m.log.Warn("Failed to fetch feed", "url", feed.URL, "error", err)
		} else {
			added, err := m.ingestItems(ctx, feed, result)
			if err != nil {
				m.log.Warn("Failed to ingest feed", "url", feed.URL, "error", err)
			} else {
				totalNew += added
			}
		}
		processed++
		m.updateProgress(ctx, jobID, 10+processed*80/len(enabled))
	}

	return m.completeJob(ctx, jobID, map[string]any{
		"feedsProcessed":   processed,
		"totalNewArticles": totalNew,
	})
}

// ingestItems refreshes feed metadata, stages candidates whose fingerprint is
// unseen, and inserts the batch in one transaction. A concurrent fetch of the
// same feed may slip identical fingerprints past the existence check; the
// uniqueness constraint is the final arbiter and losing that race is benign.
func (m *JobManager) ingestItems(ctx context.Context, feed *types.Feed, result *rss.FetchResult) (int64, error) {
	if err := m.feeds.UpdateFields(ctx, nil, feed.ID, map[string]any{
		"title":       result.Feed.Title,
		"description": result.Feed.Description,
	}); err != nil {
		return 0, err
	}

	staged := make([]*types.Article, 0, len(result.Items))
	for _, item := range result.Items {
		_, err := m.articles.GetByFingerprint(ctx, nil, item.Fingerprint)
		if err == nil {
			continue
		}
		if err != repos.ErrNotFound {
			return 0, err
		}
		staged = append(staged, &types.Article{
			FeedID:      feed.ID,
			Title:       item.Title,
			Link:        item.Link,
			Fingerprint: item.Fingerprint,
			Content:     item.Content,
			Summary:     item.Summary,
			Author:      item.Author,
			PublishedAt: item.PublishedAt,
			FetchedAt:   item.FetchedAt,
			RawJSON:     datatypes.JSON(item.RawJSON),
		})
	}

	added, err := m.articles.CreateMany(ctx, nil, staged)
	if err != nil {
		if repos.IsUniqueViolation(err) {
			m.log.Info("Some articles already existed, duplicates skipped", "feed", feed.URL)
		} else {
			return 0, err
		}
	}

	if err := m.feeds.TouchLastFetched(ctx, nil, feed.ID); err != nil {
		return added, err
	}
	return added, nil
}

func (m *JobManager) processArticleAnalysis(ctx context.Context, job *types.Job) error {
	var payload types.ArticleAnalysisPayload
	if len(job.Payload) == 0 {
		return fmt.Errorf("no articleId provided for article analysis job")
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid article analysis payload: %w", err)
	}
	if payload.ArticleID == uuid.Nil {
		return fmt.Errorf("no articleId provided for article analysis job")
	}

	m.updateProgress(ctx, job.ID, 10)

	article, err := m.articles.GetByID(ctx, nil, payload.ArticleID)
	if err != nil {
		return fmt.Errorf("article %s not found", payload.ArticleID)
	}

	m.updateProgress(ctx, job.ID, 30)

	prompt := m.analysis.BuildSportsPrompt(article)

	m.updateProgress(ctx, job.ID, 50)

	model, err := m.analysis.SelectModel(ctx, m.analysis.SportsModel())
	if err != nil {
		return err
	}

	response, err := m.ollama.Generate(ctx, GenerateRequest{
		Model:  model,
		System: m.analysis.SportsSystemPrompt(),
		Prompt: prompt,
		Options: GenerateOptions{
			Temperature: 0.3,
			NumPredict:  2000,
		},
	})
	if err != nil {
		return err
	}

	m.updateProgress(ctx, job.ID, 80)

	result := m.analysis.ParseSportsAnalysis(response)

	tags, _ := json.Marshal(result.Tags)
	entities, _ := json.Marshal(result.Entities)
	metadata, _ := json.Marshal(result.Metadata)
	insight := &types.Insight{
		ArticleID: article.ID,
		Agent:     sportsAgentName,
		Tags:      datatypes.JSON(tags),
		Entities:  datatypes.JSON(entities),
		Summary:   result.Summary,
		Score:     result.Score,
		Metadata:  datatypes.JSON(metadata),
	}
	insight, err = m.insights.Create(ctx, nil, insight)
	if err != nil {
		return fmt.Errorf("persist insight: %w", err)
	}

	return m.completeJob(ctx, job.ID, map[string]any{
		"insight":        insight,
		"analysisResult": result,
	})
}

func (m *JobManager) processReasoning(ctx context.Context, job *types.Job, onChunk ChunkFunc) error {
	var payload types.ReasoningPayload
	if len(job.Payload) == 0 {
		return fmt.Errorf("no prompt provided for reasoning job")
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid reasoning payload: %w", err)
	}
	if strings.TrimSpace(payload.Prompt) == "" {
		return fmt.Errorf("no prompt provided for reasoning job")
	}

	m.updateProgress(ctx, job.ID, 10)

	contextBlock := ""
	if len(payload.ContextArticleIDs) > 0 {
		contextArticles := make([]*types.Article, 0, len(payload.ContextArticleIDs))
		for _, articleID := range payload.ContextArticleIDs {
			article, err := m.articles.GetByID(ctx, nil, articleID)
			if err != nil {
				continue
			}
			contextArticles = append(contextArticles, article)
		}
		contextBlock = m.analysis.BuildContextBlock(contextArticles)
		m.updateProgress(ctx, job.ID, 30)
	}

	reasoningPrompt := m.analysis.BuildReasoningPrompt(payload.Prompt, contextBlock)

	m.updateProgress(ctx, job.ID, 50)

	model, err := m.analysis.SelectModel(ctx, m.analysis.ReasoningModel())
	if err != nil {
		return err
	}

	stream, err := m.ollama.GenerateStream(ctx, GenerateRequest{
		Model:  model,
		System: m.analysis.ReasoningSystemPrompt(),
		Prompt: reasoningPrompt,
		Options: GenerateOptions{
			Temperature: 0.4,
			NumPredict:  3000,
		},
	})
	if err != nil {
		return err
	}

	// One producer, two consumers: the accumulator below and the broadcast
	// fan-out (plus the optional per-call callback).
	var full strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return chunk.Err
		}
		full.WriteString(chunk.Text)
		m.notify.AnalysisChunk(job.ID, chunk.Text, chunk.Done)
		if onChunk != nil {
			onChunk(chunk.Text, chunk.Done)
		}
	}

	m.updateProgress(ctx, job.ID, 80)

	result := m.analysis.ParseReasoningAnalysis(full.String())

	metadata, _ := json.Marshal(result)
	var snapshot datatypes.JSON
	if len(payload.ContextArticleIDs) > 0 {
		data, _ := json.Marshal(payload.ContextArticleIDs)
		snapshot = datatypes.JSON(data)
	}
	if _, err := m.analyses.Create(ctx, nil, &types.Analysis{
		Prompt:          payload.Prompt,
		ContextSnapshot: snapshot,
		ResultText:      full.String(),
		Metadata:        datatypes.JSON(metadata),
	}); err != nil {
		return fmt.Errorf("persist analysis: %w", err)
	}

	return m.completeJob(ctx, job.ID, map[string]any{
		"analysisResult": result,
	})
}

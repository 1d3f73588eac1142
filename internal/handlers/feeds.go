package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/repos"
	"github.com/sportlens/sportlens-backend/internal/rss"
	"github.com/sportlens/sportlens-backend/internal/services"
	"github.com/sportlens/sportlens-backend/internal/types"
)

type FeedsHandler struct {
	log   *logger.Logger
	feeds repos.FeedRepo
	rss   *rss.Service
	jobs  *services.JobManager
}

func NewFeedsHandler(log *logger.Logger, feeds repos.FeedRepo, rssService *rss.Service, jobs *services.JobManager) *FeedsHandler {
	return &FeedsHandler{log: log, feeds: feeds, rss: rssService, jobs: jobs}
}

// GET /api/feeds
func (h *FeedsHandler) ListFeeds(c *gin.Context) {
	feeds, err := h.feeds.List(c.Request.Context(), nil)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "feeds_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"feeds": feeds})
}

type createFeedRequest struct {
	URL         string `json:"url" binding:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// POST /api/feeds
func (h *FeedsHandler) CreateFeed(c *gin.Context) {
	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	// Known URLs are rejected before the validation fetch is spent on them.
	if _, err := h.feeds.GetByURL(c.Request.Context(), nil, req.URL); err == nil {
		RespondError(c, http.StatusConflict, "feed_exists", fmt.Errorf("feed already registered: %s", req.URL))
		return
	} else if err != repos.ErrNotFound {
		RespondError(c, http.StatusInternalServerError, "feed_lookup_failed", err)
		return
	}
	if !h.rss.ValidateFeed(c.Request.Context(), req.URL) {
		RespondError(c, http.StatusBadRequest, "invalid_feed_url", fmt.Errorf("url does not serve a parseable feed: %s", req.URL))
		return
	}

	feed, err := h.feeds.Create(c.Request.Context(), nil, &types.Feed{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		if err == repos.ErrDuplicate {
			RespondError(c, http.StatusConflict, "feed_exists", fmt.Errorf("feed already registered: %s", req.URL))
			return
		}
		RespondError(c, http.StatusInternalServerError, "feed_create_failed", err)
		return
	}
	RespondCreated(c, gin.H{"feed": feed})
}

type updateFeedRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

// PATCH /api/feeds/:id
func (h *FeedsHandler) UpdateFeed(c *gin.Context) {
	feedID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_feed_id", err)
		return
	}
	var req updateFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if len(updates) == 0 {
		RespondError(c, http.StatusBadRequest, "empty_update", fmt.Errorf("no updatable fields provided"))
		return
	}
	if err := h.feeds.UpdateFields(c.Request.Context(), nil, feedID, updates); err != nil {
		RespondError(c, http.StatusInternalServerError, "feed_update_failed", err)
		return
	}
	feed, err := h.feeds.GetByID(c.Request.Context(), nil, feedID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "feed_not_found", err)
		return
	}
	RespondOK(c, gin.H{"feed": feed})
}

// DELETE /api/feeds/:id
func (h *FeedsHandler) DeleteFeed(c *gin.Context) {
	feedID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_feed_id", err)
		return
	}
	if _, err := h.feeds.GetByID(c.Request.Context(), nil, feedID); err != nil {
		RespondError(c, http.StatusNotFound, "feed_not_found", err)
		return
	}
	if err := h.feeds.Delete(c.Request.Context(), nil, feedID); err != nil {
		RespondError(c, http.StatusInternalServerError, "feed_delete_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": feedID})
}

// POST /api/feeds/:id/fetch
func (h *FeedsHandler) FetchFeed(c *gin.Context) {
	feedID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_feed_id", err)
		return
	}
	if _, err := h.feeds.GetByID(c.Request.Context(), nil, feedID); err != nil {
		RespondError(c, http.StatusNotFound, "feed_not_found", err)
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), types.JobTypeRSSFetch, types.FeedFetchPayload{FeedID: &feedID})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_create_failed", err)
		return
	}
	h.processAsync(job.ID)
	RespondAccepted(c, gin.H{"job": job})
}

// POST /api/feeds/fetch-all
func (h *FeedsHandler) FetchAllFeeds(c *gin.Context) {
	job, err := h.jobs.CreateJob(c.Request.Context(), types.JobTypeRSSFetch, types.FeedFetchPayload{AllFeeds: true})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_create_failed", err)
		return
	}
	h.processAsync(job.ID)
	RespondAccepted(c, gin.H{"job": job})
}

// processAsync runs the job detached from the request lifecycle; progress is
// observable via the job endpoint and the event stream.
func (h *FeedsHandler) processAsync(jobID uuid.UUID) {
	go func() {
		if err := h.jobs.ProcessJob(context.Background(), jobID); err != nil {
			h.log.Error("Background job did not run", "job_id", jobID, "error", err)
		}
	}()
}

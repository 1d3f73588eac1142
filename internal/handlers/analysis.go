package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/repos"
	"github.com/sportlens/sportlens-backend/internal/services"
	"github.com/sportlens/sportlens-backend/internal/types"
)

type AnalysisHandler struct {
	log      *logger.Logger
	articles repos.ArticleRepo
	analyses repos.AnalysisRepo
	jobs     *services.JobManager
}

func NewAnalysisHandler(log *logger.Logger, articles repos.ArticleRepo, analyses repos.AnalysisRepo, jobs *services.JobManager) *AnalysisHandler {
	return &AnalysisHandler{log: log, articles: articles, analyses: analyses, jobs: jobs}
}

// POST /api/articles/:id/analyze
func (h *AnalysisHandler) AnalyzeArticle(c *gin.Context) {
	articleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_article_id", err)
		return
	}
	if _, err := h.articles.GetByID(c.Request.Context(), nil, articleID); err != nil {
		RespondError(c, http.StatusNotFound, "article_not_found", err)
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), types.JobTypeArticleAnalysis, types.ArticleAnalysisPayload{ArticleID: articleID})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_create_failed", err)
		return
	}
	go func() {
		if err := h.jobs.ProcessJob(context.Background(), job.ID); err != nil {
			h.log.Error("Background analysis job did not run", "job_id", job.ID, "error", err)
		}
	}()
	RespondAccepted(c, gin.H{"job": job})
}

type reasoningRequest struct {
	Prompt            string      `json:"prompt" binding:"required"`
	ContextArticleIDs []uuid.UUID `json:"contextArticleIds"`
}

// POST /api/reasoning
func (h *AnalysisHandler) Reason(c *gin.Context) {
	var req reasoningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), types.JobTypeReasoning, types.ReasoningPayload{
		Prompt:            req.Prompt,
		ContextArticleIDs: req.ContextArticleIDs,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_create_failed", err)
		return
	}
	go func() {
		if err := h.jobs.ProcessJob(context.Background(), job.ID); err != nil {
			h.log.Error("Background reasoning job did not run", "job_id", job.ID, "error", err)
		}
	}()
	RespondAccepted(c, gin.H{"job": job})
}

// POST /api/reasoning/stream
//
// Runs the reasoning job inline and streams chunks to this response as SSE
// frames. The same chunks still reach the shared event stream, and the job
// row is persisted exactly as in the async variant.
func (h *AnalysisHandler) ReasonStream(c *gin.Context) {
	var req reasoningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), types.JobTypeReasoning, types.ReasoningPayload{
		Prompt:            req.Prompt,
		ContextArticleIDs: req.ContextArticleIDs,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_create_failed", err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)
	writeFrame := func(payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		if canFlush {
			flusher.Flush()
		}
	}

	writeFrame(gin.H{"type": "job.created", "data": gin.H{"jobId": job.ID}})

	// Execution must outlive the connection: a client that walks away mid
	// stream abandons its view of the job, not the job itself. Frames written
	// after disconnect go nowhere, which is fine.
	ctx := context.WithoutCancel(c.Request.Context())
	err = h.jobs.ProcessJobStream(ctx, job.ID, func(chunk string, done bool) {
		writeFrame(gin.H{
			"type": "analysis.chunk",
			"data": gin.H{"chunk": chunk, "done": done, "jobId": job.ID},
		})
	})
	if err != nil {
		writeFrame(gin.H{"type": "error", "data": gin.H{"jobId": job.ID, "message": err.Error()}})
		return
	}

	final, err := h.jobs.GetJob(ctx, job.ID)
	if err != nil {
		writeFrame(gin.H{"type": "error", "data": gin.H{"jobId": job.ID, "message": err.Error()}})
		return
	}
	writeFrame(gin.H{"type": "job.updated", "data": gin.H{
		"jobId":  final.ID,
		"status": final.Status,
		"error":  final.Error,
	}})
}

// GET /api/analyses
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	limit, offset := pagination(c)
	analyses, err := h.analyses.List(c.Request.Context(), nil, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "analyses_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"analyses": analyses})
}

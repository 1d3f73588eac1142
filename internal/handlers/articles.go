package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/repos"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ArticlesHandler struct {
	log      *logger.Logger
	articles repos.ArticleRepo
	insights repos.InsightRepo
}

func NewArticlesHandler(log *logger.Logger, articles repos.ArticleRepo, insights repos.InsightRepo) *ArticlesHandler {
	return &ArticlesHandler{log: log, articles: articles, insights: insights}
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GET /api/articles
func (h *ArticlesHandler) ListArticles(c *gin.Context) {
	limit, offset := pagination(c)

	if feedParam := c.Query("feed_id"); feedParam != "" {
		feedID, err := uuid.Parse(feedParam)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_feed_id", err)
			return
		}
		articles, err := h.articles.ListByFeed(c.Request.Context(), nil, feedID, limit, offset)
		if err != nil {
			RespondError(c, http.StatusInternalServerError, "articles_list_failed", err)
			return
		}
		RespondOK(c, gin.H{"articles": articles})
		return
	}

	articles, err := h.articles.List(c.Request.Context(), nil, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "articles_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"articles": articles})
}

// GET /api/articles/:id
func (h *ArticlesHandler) GetArticle(c *gin.Context) {
	articleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_article_id", err)
		return
	}
	article, err := h.articles.GetByID(c.Request.Context(), nil, articleID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "article_not_found", err)
		return
	}
	insights, err := h.insights.ListByArticle(c.Request.Context(), nil, articleID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "insights_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"article": article, "insights": insights})
}

// GET /api/articles/search?q=
func (h *ArticlesHandler) SearchArticles(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		RespondError(c, http.StatusBadRequest, "missing_query", fmt.Errorf("query parameter q is required"))
		return
	}
	limit, offset := pagination(c)
	articles, err := h.articles.Search(c.Request.Context(), nil, query, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "articles_search_failed", err)
		return
	}
	RespondOK(c, gin.H{"articles": articles, "query": query})
}

// GET /api/insights
func (h *ArticlesHandler) ListInsights(c *gin.Context) {
	limit, offset := pagination(c)
	insights, err := h.insights.List(c.Request.Context(), nil, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "insights_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"insights": insights})
}

// GET /api/articles/count
func (h *ArticlesHandler) CountArticles(c *gin.Context) {
	count, err := h.articles.Count(c.Request.Context(), nil)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "articles_count_failed", err)
		return
	}
	RespondOK(c, gin.H{"count": count})
}

type deleteArticlesRequest struct {
	IDs           []uuid.UUID `json:"ids"`
	FeedID        *uuid.UUID  `json:"feedId"`
	OlderThanDays *int        `json:"olderThanDays"`
	Search        string      `json:"search"`
}

// POST /api/articles/delete
//
// Exactly one selector must be provided. A dedicated POST rather than DELETE
// because the selectors need a body.
func (h *ArticlesHandler) DeleteArticles(c *gin.Context) {
	var req deleteArticlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	selectors := 0
	if len(req.IDs) > 0 {
		selectors++
	}
	if req.FeedID != nil {
		selectors++
	}
	if req.OlderThanDays != nil {
		selectors++
	}
	if req.Search != "" {
		selectors++
	}
	if selectors != 1 {
		RespondError(c, http.StatusBadRequest, "invalid_selector",
			fmt.Errorf("provide exactly one of ids, feedId, olderThanDays, search"))
		return
	}

	ctx := c.Request.Context()
	var (
		deleted int64
		err     error
	)
	switch {
	case len(req.IDs) > 0:
		deleted, err = h.articles.DeleteMany(ctx, nil, req.IDs)
	case req.FeedID != nil:
		deleted, err = h.articles.DeleteByFeed(ctx, nil, *req.FeedID)
	case req.OlderThanDays != nil:
		if *req.OlderThanDays <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_selector", fmt.Errorf("olderThanDays must be positive"))
			return
		}
		deleted, err = h.articles.DeleteOlderThan(ctx, nil, time.Duration(*req.OlderThanDays)*24*time.Hour)
	default:
		deleted, err = h.articles.DeleteBySearch(ctx, nil, req.Search)
	}
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "articles_delete_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": deleted})
}

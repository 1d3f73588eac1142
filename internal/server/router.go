package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sportlens/sportlens-backend/internal/handlers"
)

type RouterConfig struct {
	CORSOrigins     []string
	HealthHandler   *handlers.HealthHandler
	FeedsHandler    *handlers.FeedsHandler
	ArticlesHandler *handlers.ArticlesHandler
	AnalysisHandler *handlers.AnalysisHandler
	JobsHandler     *handlers.JobsHandler
	ChatHandler     *handlers.ChatHandler
	EventsHandler   *handlers.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	{
		// Feeds
		api.GET("/feeds", cfg.FeedsHandler.ListFeeds)
		api.POST("/feeds", cfg.FeedsHandler.CreateFeed)
		api.PATCH("/feeds/:id", cfg.FeedsHandler.UpdateFeed)
		api.DELETE("/feeds/:id", cfg.FeedsHandler.DeleteFeed)
		api.POST("/feeds/:id/fetch", cfg.FeedsHandler.FetchFeed)
		api.POST("/feeds/fetch-all", cfg.FeedsHandler.FetchAllFeeds)

		// Articles
		api.GET("/articles", cfg.ArticlesHandler.ListArticles)
		api.GET("/articles/search", cfg.ArticlesHandler.SearchArticles)
		api.GET("/articles/count", cfg.ArticlesHandler.CountArticles)
		api.GET("/articles/:id", cfg.ArticlesHandler.GetArticle)
		api.POST("/articles/delete", cfg.ArticlesHandler.DeleteArticles)
		api.GET("/insights", cfg.ArticlesHandler.ListInsights)

		// Analysis
		api.POST("/articles/:id/analyze", cfg.AnalysisHandler.AnalyzeArticle)
		api.POST("/reasoning", cfg.AnalysisHandler.Reason)
		api.POST("/reasoning/stream", cfg.AnalysisHandler.ReasonStream)
		api.GET("/analyses", cfg.AnalysisHandler.ListAnalyses)

		// Jobs
		api.GET("/jobs/:id", cfg.JobsHandler.GetJobByID)

		// Chat
		api.POST("/chat", cfg.ChatHandler.Chat)

		// Events
		api.GET("/events", cfg.EventsHandler.Stream)
	}

	return router
}

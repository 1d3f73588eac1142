package app

import (
	"gorm.io/gorm"

	"github.com/sportlens/sportlens-backend/internal/handlers"
	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/sse"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Feeds    *handlers.FeedsHandler
	Articles *handlers.ArticlesHandler
	Analysis *handlers.AnalysisHandler
	Jobs     *handlers.JobsHandler
	Chat     *handlers.ChatHandler
	Events   *handlers.EventsHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, reposet Repos, serviceset Services, hub *sse.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   handlers.NewHealthHandler(db, serviceset.Ollama),
		Feeds:    handlers.NewFeedsHandler(log, reposet.Feed, serviceset.RSS, serviceset.JobManager),
		Articles: handlers.NewArticlesHandler(log, reposet.Article, reposet.Insight),
		Analysis: handlers.NewAnalysisHandler(log, reposet.Article, reposet.Analysis, serviceset.JobManager),
		Jobs:     handlers.NewJobsHandler(serviceset.JobManager),
		Chat:     handlers.NewChatHandler(serviceset.Chat),
		Events:   handlers.NewEventsHandler(hub),
	}
}

package app

import (
	"github.com/gin-gonic/gin"

	"github.com/sportlens/sportlens-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		CORSOrigins:     cfg.CORSOrigins,
		HealthHandler:   handlerset.Health,
		FeedsHandler:    handlerset.Feeds,
		ArticlesHandler: handlerset.Articles,
		AnalysisHandler: handlerset.Analysis,
		JobsHandler:     handlerset.Jobs,
		ChatHandler:     handlerset.Chat,
		EventsHandler:   handlerset.Events,
	})
}

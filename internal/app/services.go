package app

import (
	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/rss"
	"github.com/sportlens/sportlens-backend/internal/services"
	"github.com/sportlens/sportlens-backend/internal/sse"
)

type Services struct {
	RSS        *rss.Service
	Ollama     services.OllamaClient
	Analysis   *services.AnalysisService
	JobManager *services.JobManager
	Scheduler  *services.Scheduler
	Chat       *services.ChatService
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, hub *sse.Hub) Services {
	log.Info("Wiring services...")

	rssService := rss.NewService(log)
	ollama := services.NewOllamaClient(log)
	analysis := services.NewAnalysisService(log, ollama)
	notifier := services.NewJobNotifier(hub)

	manager := services.NewJobManager(
		log,
		reposet.Job, reposet.Feed, reposet.Article, reposet.Insight, reposet.Analysis,
		rssService, ollama, analysis, notifier,
	)

	scheduler := services.NewScheduler(log, manager, services.SchedulerConfig{
		FetchSpec:    cfg.FetchCronSpec,
		CleanupSpec:  cfg.CleanupCronSpec,
		JobRetention: cfg.JobRetention,
	})

	chat := services.NewChatService(log, ollama, analysis)

	return Services{
		RSS:        rssService,
		Ollama:     ollama,
		Analysis:   analysis,
		JobManager: manager,
		Scheduler:  scheduler,
		Chat:       chat,
	}
}

package app

import (
	"gorm.io/gorm"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/repos"
)

type Repos struct {
	Feed     repos.FeedRepo
	Article  repos.ArticleRepo
	Insight  repos.InsightRepo
	Analysis repos.AnalysisRepo
	Job      repos.JobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Feed:     repos.NewFeedRepo(db, log),
		Article:  repos.NewArticleRepo(db, log),
		Insight:  repos.NewInsightRepo(db, log),
		Analysis: repos.NewAnalysisRepo(db, log),
		Job:      repos.NewJobRepo(db, log),
	}
}

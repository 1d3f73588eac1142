package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/utils"
)

type Config struct {
	Port             string
	CORSOrigins      []string
	FetchCronSpec    string
	CleanupCronSpec  string
	JobRetention     time.Duration
	DisableScheduler bool
}

func LoadConfig(log *logger.Logger) Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded", "error", err)
	}

	port := utils.GetEnv("PORT", "8080", log)
	corsOrigins := utils.GetEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173", log)
	fetchSpec := utils.GetEnv("RSS_FETCH_INTERVAL", "0 */2 * * *", log)
	cleanupSpec := utils.GetEnv("JOB_CLEANUP_INTERVAL", "0 2 * * *", log)
	retentionDays := utils.GetEnvAsInt("JOB_RETENTION_DAYS", 7, log)
	disableScheduler := utils.GetEnv("DISABLE_SCHEDULER", "false", log) == "true"

	return Config{
		Port:             port,
		CORSOrigins:      strings.Split(corsOrigins, ","),
		FetchCronSpec:    fetchSpec,
		CleanupCronSpec:  cleanupSpec,
		JobRetention:     time.Duration(retentionDays) * 24 * time.Hour,
		DisableScheduler: disableScheduler,
	}
}

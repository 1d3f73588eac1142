package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sportlens/sportlens-backend/internal/services"
)

type HealthHandler struct {
	db     *gorm.DB
	ollama services.OllamaClient
}

func NewHealthHandler(db *gorm.DB, ollama services.OllamaClient) *HealthHandler {
	return &HealthHandler{db: db, ollama: ollama}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		dbStatus = "unreachable"
	}
	ollamaStatus := "ok"
	if !h.ollama.CheckHealth(c.Request.Context()) {
		ollamaStatus = "unreachable"
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status": map[string]string{
			"database": dbStatus,
			"ollama":   ollamaStatus,
		},
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sportlens/sportlens-backend/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Messages []services.ChatMessage `json:"messages" binding:"required"`
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reply, err := h.chat.Chat(c.Request.Context(), req.Messages)
	if err != nil {
		RespondError(c, http.StatusBadGateway, "chat_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"message": services.ChatMessage{Role: "assistant", Content: reply},
	})
}

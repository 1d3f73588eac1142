package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sportlens/sportlens-backend/internal/sse"
)

type EventsHandler struct {
	hub *sse.Hub
}

func NewEventsHandler(hub *sse.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// GET /api/events
//
// Holds the connection open and relays every broadcast until the client
// disconnects.
func (h *EventsHandler) Stream(c *gin.Context) {
	client := h.hub.NewClient()
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

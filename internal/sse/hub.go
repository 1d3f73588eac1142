package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sportlens/sportlens-backend/internal/logger"
)

const (
	EventConnected     = "connected"
	EventJobCreated    = "job.created"
	EventJobUpdated    = "job.updated"
	EventAnalysisChunk = "analysis.chunk"
)

// Event is the wire envelope pushed to live subscribers: one
// `data: {"type":...,"data":...}` frame per event, flushed immediately.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Client struct {
	ID       uuid.UUID
	Outbound chan Event
	done     chan struct{}
}

// Hub fans events out to every currently-registered subscriber. It holds
// registrations only; connection lifecycle belongs to the HTTP layer.
type Hub struct {
	mu      sync.RWMutex
	log     *logger.Logger
	clients map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:     log.With("component", "SSEHub"),
		clients: make(map[*Client]bool),
	}
}

func (h *Hub) NewClient() *Client {
	return &Client{
		ID:       uuid.New(),
		Outbound: make(chan Event, 16),
		done:     make(chan struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	h.log.Debug("SSE client registered", "clientID", client.ID)
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
	h.log.Debug("SSE client unregistered", "clientID", client.ID)
}

// Broadcast is fire-and-forget: a subscriber whose buffer is full is skipped,
// never treated as an error.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.Outbound <- event:
		default:
			h.log.Warn("Dropping SSE event; outbound buffer full", "clientID", c.ID, "event", event.Type)
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP registers the client, streams its events until the request
// context ends, and unregisters on the way out.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.Register(client)
	defer h.Unregister(client)

	h.writeEvent(w, Event{Type: EventConnected, Data: map[string]any{"timestamp": time.Now().UTC()}})
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("SSE client context done", "clientID", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event := <-client.Outbound:
			h.writeEvent(w, event)
			flusher.Flush()
		}
	}
}

func (h *Hub) writeEvent(w http.ResponseWriter, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("Failed to marshal SSE event", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// Close terminates a client's stream loop from the hub side.
func (h *Hub) Close(client *Client) {
	close(client.done)
	h.Unregister(client)
}

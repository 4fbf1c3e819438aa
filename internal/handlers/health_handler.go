package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/subculture-collective/clipqueue/internal/command"
)

// ChatStatus is the subset of internal/chatclient.Client the health endpoint reports on.
// cmd/api wraps *chatclient.Client in an adapter satisfying this, since Client.State()
// returns the concrete chatclient.State type rather than a string.
type ChatStatus interface {
	StateString() string
	ConnectedAt() time.Time
	LastMessageAt() time.Time
}

// HealthHandler serves the public liveness/readiness endpoint.
type HealthHandler struct {
	engine *command.Engine
	chat   ChatStatus
	boot   time.Time
}

// NewHealthHandler constructs a HealthHandler. boot is the process start time; it is
// stored but not read, since eventsub uptime is computed from the chat connection time.
func NewHealthHandler(engine *command.Engine, chat ChatStatus, boot time.Time) *HealthHandler {
	return &HealthHandler{engine: engine, chat: chat, boot: boot}
}

type eventsubStatus struct {
	Connected     bool   `json:"connected"`
	ConnectedAt   string `json:"connectedAt,omitempty"`
	LastMessageAt string `json:"lastMessageAt,omitempty"`
	UptimeMs      int64  `json:"uptimeMs"`
}

// Health serves GET /api/health.
func (h *HealthHandler) Health(c *gin.Context) {
	state := h.engine.Snapshot()

	status := eventsubStatus{Connected: h.chat.StateString() == "active"}
	if connectedAt := h.chat.ConnectedAt(); !connectedAt.IsZero() {
		status.ConnectedAt = connectedAt.UTC().Format(time.RFC3339)
		status.UptimeMs = time.Since(connectedAt).Milliseconds()
	}
	if lastMsg := h.chat.LastMessageAt(); !lastMsg.IsZero() {
		status.LastMessageAt = lastMsg.UTC().Format(time.RFC3339)
	}

	queueSize := len(state.Upcoming)
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"eventsub":  status,
		"queueSize": queueSize,
	})
}

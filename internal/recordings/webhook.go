package recordings

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/platform"
	"github.com/matchvault/backend/pkg/queue"
	"github.com/matchvault/backend/pkg/response"
)

// SessionFinishedPayload is the body the video platform posts when a session changes state.
type SessionFinishedPayload struct {
	SessionID       string `json:"session_id"`
	ProcessingState string `json:"processing_state"`
}

// SyncEnqueuer queues single-session syncs. *queue.Queue satisfies it.
type SyncEnqueuer interface {
	EnqueueSyncSession(ctx context.Context, payload queue.SyncSessionPayload) error
}

// WebhookHandler handles session webhooks from the video platform.
type WebhookHandler struct {
	queue  SyncEnqueuer
	logger *zap.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(q SyncEnqueuer, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{queue: q, logger: logger}
}

// SessionFinished handles POST /webhooks/session-finished. Finished sessions are queued for the worker;
// other states are acknowledged and ignored.
func (h *WebhookHandler) SessionFinished(c *gin.Context) {
	var body SessionFinishedPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if body.SessionID == "" {
		response.BadRequest(c, "session_id required")
		return
	}
	if body.ProcessingState != "" && body.ProcessingState != platform.StateFinished {
		response.Accepted(c, gin.H{"queued": false})
		return
	}
	if err := h.queue.EnqueueSyncSession(c.Request.Context(), queue.SyncSessionPayload{
		SessionID: body.SessionID,
		Trigger:   "webhook",
	}); err != nil {
		h.logger.Error("enqueue sync job failed", zap.Error(err), zap.String("session_id", body.SessionID))
		response.Internal(c, "failed to queue sync")
		return
	}
	h.logger.Info("session finished webhook queued", zap.String("session_id", body.SessionID))
	response.Accepted(c, gin.H{"queued": true})
}

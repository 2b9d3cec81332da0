package emaillogs

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/pkg/response"
)

// LogLister reads delivery logs. *Repository satisfies it.
type LogLister interface {
	ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo   LogLister
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(repo LogLister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListByRecording handles GET /recordings/:id/emails. Returns "recording ready" delivery logs, newest first.
func (h *Handler) ListByRecording(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	logs, err := h.repo.ListByRecording(c.Request.Context(), recordingID)
	if err != nil {
		h.logger.Error("list email logs failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to load email logs")
		return
	}
	if logs == nil {
		logs = []*models.EmailLog{}
	}
	response.OK(c, logs)
}

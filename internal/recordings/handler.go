package recordings

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/auth"
	"github.com/matchvault/backend/internal/middleware"
	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/internal/reconcile"
	"github.com/matchvault/backend/pkg/response"
)

// Action values accepted by POST /sync.
const (
	ActionSync     = "sync"
	ActionBackfill = "backfill"
)

// Syncer is the on-demand side of the reconciler.
type Syncer interface {
	CheckStatus(ctx context.Context) (reconcile.StatusReport, error)
	RunSync(ctx context.Context, targetSessionID string) (reconcile.Summary, error)
	Backfill(ctx context.Context) (reconcile.Summary, error)
}

// RecordingReader loads a recording by id. *Repository satisfies it.
type RecordingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
}

// ReadLocator issues time-limited read URLs. *storage.S3 satisfies it.
type ReadLocator interface {
	IssueReadLocator(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// AccessChecker answers whether a user may play a recording. *access.Repository satisfies it.
type AccessChecker interface {
	HasAccess(ctx context.Context, recordingID, userID uuid.UUID) (bool, error)
}

// RunRecorder counts invocations per trigger. *metrics.Sync satisfies it.
type RunRecorder interface {
	ObserveRun(trigger string, err error)
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	sync       Syncer
	repo       RecordingReader
	locator    ReadLocator
	access     AccessChecker
	runs       RunRecorder
	presignTTL time.Duration
	logger     *zap.Logger
}

// NewHandler creates a recordings handler. locator, access and runs may be nil.
func NewHandler(sync Syncer, repo RecordingReader, locator ReadLocator, access AccessChecker, runs RunRecorder, presignTTL time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &Handler{sync: sync, repo: repo, locator: locator, access: access, runs: runs, presignTTL: presignTTL, logger: logger}
}

type syncRequest struct {
	GameID string `json:"gameId"`
	Action string `json:"action"`
}

// Status handles GET /sync. Read-only classification of every finished session.
func (h *Handler) Status(c *gin.Context) {
	report, err := h.sync.CheckStatus(c.Request.Context())
	if err != nil {
		h.writeError(c, "check status", err)
		return
	}
	response.OK(c, report)
}

// Sync handles POST /sync. Body {gameId?, action?}; action "backfill" records objects already in the bucket,
// otherwise runs a sync scoped to gameId when given.
func (h *Handler) Sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var (
		sum     reconcile.Summary
		err     error
		trigger = "http"
	)
	switch req.Action {
	case "", ActionSync:
		sum, err = h.sync.RunSync(c.Request.Context(), req.GameID)
	case ActionBackfill:
		trigger = "http_backfill"
		sum, err = h.sync.Backfill(c.Request.Context())
	default:
		response.BadRequest(c, "unknown action: "+req.Action)
		return
	}
	if h.runs != nil {
		h.runs.ObserveRun(trigger, err)
	}
	if err != nil {
		h.writeError(c, "run sync", err)
		return
	}
	response.OK(c, sum)
}

// DownloadURL handles GET /recordings/:id/download-url. Returns a presigned URL for published recordings
// the caller may watch.
func (h *Handler) DownloadURL(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	userID, _ := c.Get(middleware.ContextUserID)
	role, _ := c.Get(middleware.ContextUserRole)

	rec, err := h.repo.GetByID(c.Request.Context(), recordingID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			response.NotFound(c, "recording not found")
			return
		}
		h.logger.Error("load recording failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to load recording")
		return
	}
	if rec.Status != models.RecordingStatusPublished || !rec.HasStorageKey() {
		response.BadRequest(c, "recording not ready for download")
		return
	}

	if role != auth.RoleAdmin {
		uid, ok := userID.(uuid.UUID)
		if !ok || h.access == nil {
			response.Forbidden(c, "not authorized to download this recording")
			return
		}
		allowed, err := h.access.HasAccess(c.Request.Context(), rec.ID, uid)
		if err != nil {
			h.logger.Error("access check failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
			response.Internal(c, "failed to check access")
			return
		}
		if !allowed {
			response.Forbidden(c, "not authorized to download this recording")
			return
		}
	}

	if h.locator == nil {
		response.ServiceUnavailable(c, "storage not configured")
		return
	}
	url, err := h.locator.IssueReadLocator(c.Request.Context(), rec.Key(), h.presignTTL)
	if err != nil {
		h.logger.Error("presign recording download failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(h.presignTTL.Seconds())})
}

func (h *Handler) writeError(c *gin.Context, op string, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindAuth:
		h.logger.Error(op+" failed: platform rejected credentials", zap.Error(err))
		response.BadGateway(c, err.Error())
	case apperr.KindUpstream:
		h.logger.Error(op+" failed: platform unavailable", zap.Error(err))
		response.BadGateway(c, err.Error())
	case apperr.KindNotFound:
		response.NotFound(c, err.Error())
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, err.Error())
	}
}

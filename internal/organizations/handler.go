package organizations

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/pkg/response"
)

// SceneStore is the subset of *Repository the handler needs.
type SceneStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListSceneMappings(ctx context.Context) ([]models.SceneMapping, error)
	MapScene(ctx context.Context, sceneID string, orgID uuid.UUID) (*models.SceneMapping, error)
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo   SceneStore
	logger *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo SceneStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// MapSceneRequest is the body for PUT /organizations/scenes/:scene_id.
type MapSceneRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
}

// ListScenes handles GET /organizations/scenes.
func (h *Handler) ListScenes(c *gin.Context) {
	list, err := h.repo.ListSceneMappings(c.Request.Context())
	if err != nil {
		h.logger.Error("list scene mappings failed", zap.Error(err))
		response.Internal(c, "failed to load scene mappings")
		return
	}
	if list == nil {
		list = []models.SceneMapping{}
	}
	response.OK(c, list)
}

// MapScene handles PUT /organizations/scenes/:scene_id. New recordings from the scene are attributed
// to the organization; existing rows keep their owner.
func (h *Handler) MapScene(c *gin.Context) {
	sceneID := strings.TrimSpace(c.Param("scene_id"))
	if sceneID == "" {
		response.BadRequest(c, "scene id required")
		return
	}
	var body MapSceneRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "organization_id required")
		return
	}
	orgID, err := uuid.Parse(body.OrganizationID)
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), orgID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			response.NotFound(c, "organization not found")
			return
		}
		response.Internal(c, "failed to load organization")
		return
	}
	m, err := h.repo.MapScene(c.Request.Context(), sceneID, orgID)
	if err != nil {
		h.logger.Error("map scene failed", zap.Error(err), zap.String("scene_id", sceneID))
		response.Internal(c, "failed to map scene")
		return
	}
	h.logger.Info("scene mapped", zap.String("scene_id", sceneID), zap.String("organization_id", orgID.String()))
	response.OK(c, m)
}

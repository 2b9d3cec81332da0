package organizations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memScenes struct {
	orgs   map[uuid.UUID]*models.Organization
	scenes map[string]uuid.UUID
}

func (m *memScenes) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return nil, apperr.NotFound("get organization", "organization not found")
	}
	return org, nil
}

func (m *memScenes) ListSceneMappings(ctx context.Context) ([]models.SceneMapping, error) {
	var out []models.SceneMapping
	for scene, org := range m.scenes {
		out = append(out, models.SceneMapping{SceneID: scene, OrganizationID: org})
	}
	return out, nil
}

func (m *memScenes) MapScene(ctx context.Context, sceneID string, orgID uuid.UUID) (*models.SceneMapping, error) {
	m.scenes[sceneID] = orgID
	return &models.SceneMapping{SceneID: sceneID, OrganizationID: orgID, CreatedAt: time.Now()}, nil
}

func router(store SceneStore) *gin.Engine {
	h := NewHandler(store, zap.NewNop())
	r := gin.New()
	r.GET("/organizations/scenes", h.ListScenes)
	r.PUT("/organizations/scenes/:scene_id", h.MapScene)
	return r
}

func put(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_MapScene(t *testing.T) {
	club := uuid.New()
	store := &memScenes{
		orgs:   map[uuid.UUID]*models.Organization{club: {ID: club, Name: "Riverside Padel"}},
		scenes: map[string]uuid.UUID{},
	}
	r := router(store)

	w := put(r, "/organizations/scenes/scene-7", `{"organization_id":"`+club.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, club, store.scenes["scene-7"])

	w = put(r, "/organizations/scenes/scene-8", `{"organization_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = put(r, "/organizations/scenes/scene-8", `{"organization_id":"club"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = put(r, "/organizations/scenes/scene-8", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, store.scenes, "scene-8")
}

func TestHandler_ListScenes(t *testing.T) {
	store := &memScenes{orgs: map[uuid.UUID]*models.Organization{}, scenes: map[string]uuid.UUID{}}
	r := router(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/organizations/scenes", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}

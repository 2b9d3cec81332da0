package emaillogs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchvault/backend/internal/models"
)

type stubLogs struct {
	logs []*models.EmailLog
	err  error
	got  uuid.UUID
}

func (s *stubLogs) ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]*models.EmailLog, error) {
	s.got = recordingID
	return s.logs, s.err
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/recordings/:id/emails", h.ListByRecording)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListByRecording(t *testing.T) {
	recID := uuid.New()
	stub := &stubLogs{logs: []*models.EmailLog{
		{RecordingID: &recID, EmailType: models.EmailTypeRecordingReady, RecipientEmail: "fan@example.com", Status: models.EmailLogStatusSent},
	}}

	w := serve(NewHandler(stub, nil), "/recordings/"+recID.String()+"/emails")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, recID, stub.got)
	var body struct {
		Data []models.EmailLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "fan@example.com", body.Data[0].RecipientEmail)
}

func TestListByRecording_Errors(t *testing.T) {
	w := serve(NewHandler(&stubLogs{}, nil), "/recordings/nope/emails")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(NewHandler(&stubLogs{err: assert.AnError}, nil), "/recordings/"+uuid.NewString()+"/emails")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

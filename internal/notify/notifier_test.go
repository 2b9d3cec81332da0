package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/matchvault/backend/internal/models"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) SendRecordingReadyEmail(ctx context.Context, email RecordingReadyEmail) error {
	return m.Called(ctx, email).Error(0)
}

type stubRecipients struct {
	list []models.Recipient
	err  error
}

func (s stubRecipients) ActiveRecipients(context.Context, uuid.UUID) ([]models.Recipient, error) {
	return s.list, s.err
}

type stubVenues struct {
	name string
	err  error
}

func (s stubVenues) VenueName(context.Context, uuid.UUID) (string, error) { return s.name, s.err }

func readyRecording() *models.Recording {
	org := uuid.New()
	return &models.Recording{
		ID:             uuid.New(),
		Title:          "U12 Final",
		BusinessDate:   time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC),
		OrganizationID: &org,
	}
}

func TestNotifier_DispatchesPerRecipient(t *testing.T) {
	rec := readyRecording()
	d := new(mockDispatcher)
	d.On("SendRecordingReadyEmail", mock.Anything, mock.MatchedBy(func(e RecordingReadyEmail) bool {
		return e.RecordingID == rec.ID && e.VenueName == "North Park" && e.RecordingTitle == "U12 Final"
	})).Return(nil).Twice()

	n := NewNotifier(stubRecipients{list: []models.Recipient{
		{UserID: uuid.New(), Email: "a@example.com"},
		{UserID: uuid.New(), Email: "b@example.com"},
		{UserID: uuid.New(), Email: ""},
	}}, stubVenues{name: "North Park"}, d, nil)

	n.RecordingReady(context.Background(), rec)
	d.AssertExpectations(t)
	d.AssertNumberOfCalls(t, "SendRecordingReadyEmail", 2)
}

func TestNotifier_SwallowsFailures(t *testing.T) {
	rec := readyRecording()
	d := new(mockDispatcher)
	d.On("SendRecordingReadyEmail", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	n := NewNotifier(stubRecipients{list: []models.Recipient{
		{Email: "a@example.com"},
		{Email: "b@example.com"},
	}}, stubVenues{err: errors.New("db down")}, d, nil)

	assert.NotPanics(t, func() { n.RecordingReady(context.Background(), rec) })
	d.AssertNumberOfCalls(t, "SendRecordingReadyEmail", 2)
}

func TestNotifier_RecipientLookupFailure(t *testing.T) {
	d := new(mockDispatcher)
	n := NewNotifier(stubRecipients{err: errors.New("db down")}, stubVenues{}, d, nil)
	n.RecordingReady(context.Background(), readyRecording())
	d.AssertNotCalled(t, "SendRecordingReadyEmail", mock.Anything, mock.Anything)
}

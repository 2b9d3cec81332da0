package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/pkg/queue"
)

type fakeMailer struct {
	sent []Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeEmailLogs struct {
	entries []*models.EmailLog
}

func (f *fakeEmailLogs) Record(ctx context.Context, el *models.EmailLog) error {
	f.entries = append(f.entries, el)
	return nil
}

func readyJob(t *testing.T, id uuid.UUID) *queue.Job {
	t.Helper()
	payload := `{"recording_id":"` + id.String() + `","to_email":"coach@example.com","recipient_name":"Sam","recording_title":"U12 Final","match_date":"2024-06-15T18:00:00Z","venue_name":"North Park"}`
	return &queue.Job{ID: "j1", Type: queue.JobTypeRecordingReady, Payload: []byte(payload)}
}

func TestEmailProcessor_ProcessSends(t *testing.T) {
	id := uuid.New()
	mailer := &fakeMailer{}
	logs := &fakeEmailLogs{}
	w := NewEmailProcessor(mailer, logs, "https://matchvault.example/", nil)

	require.NoError(t, w.Process(context.Background(), readyJob(t, id)))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "coach@example.com", msg.To)
	assert.Equal(t, "Your recording is ready: U12 Final", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Sam,")
	assert.Contains(t, msg.Body, "at North Park")
	assert.Contains(t, msg.Body, "Saturday, 15 June 2024")
	assert.Contains(t, msg.Body, "https://matchvault.example/recordings/"+id.String())

	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.EmailLogStatusSent, logs.entries[0].Status)
	assert.Equal(t, id, *logs.entries[0].RecordingID)
}

func TestEmailProcessor_ProcessLogsFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("relay refused")}
	logs := &fakeEmailLogs{}
	w := NewEmailProcessor(mailer, logs, "", nil)

	err := w.Process(context.Background(), readyJob(t, uuid.New()))
	require.Error(t, err)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.EmailLogStatusFailed, logs.entries[0].Status)
	assert.Contains(t, logs.entries[0].ErrorMessage, "relay refused")
}

func TestEmailProcessor_UnknownJobType(t *testing.T) {
	w := NewEmailProcessor(&fakeMailer{}, nil, "", nil)
	err := w.Process(context.Background(), &queue.Job{ID: "x", Type: "analytics"})
	assert.Error(t, err)
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, User: "u", Pass: "p", FromAddress: "noreply@example.com", FromName: "MatchVault"})
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	err := m.Send(context.Background(), Message{To: "coach@example.com", Subject: "Hello", Body: "line1\nline2"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"coach@example.com"}, gotTo)
	raw := string(gotMsg)
	assert.Contains(t, raw, "Subject: Hello\r\n")
	assert.Contains(t, raw, `From: "MatchVault" <noreply@example.com>`)
	assert.True(t, strings.HasSuffix(raw, "line1\r\nline2"))
}

func TestSMTPMailer_NoHost(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{})
	assert.Error(t, m.Send(context.Background(), Message{To: "x@example.com"}))
}

func TestSMTPMailer_HeaderValues(t *testing.T) {
	newMailer := func(got *[]byte, calls *int) *SMTPMailer {
		m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, FromAddress: "noreply@example.com"})
		m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			*calls++
			*got = msg
			return nil
		}
		return m
	}

	t.Run("line breaks in subject cannot add headers", func(t *testing.T) {
		var raw []byte
		calls := 0
		m := newMailer(&raw, &calls)
		err := m.Send(context.Background(), Message{To: "coach@example.com", Subject: "Derby\r\nBcc: attacker@evil.test", Body: "hi"})
		require.NoError(t, err)
		headers, _, _ := strings.Cut(string(raw), "\r\n\r\n")
		assert.NotContains(t, headers, "\r\nBcc:")
		assert.Contains(t, headers, "Subject: Derby Bcc: attacker@evil.test\r\n")
	})

	t.Run("non-ascii subject is encoded", func(t *testing.T) {
		var raw []byte
		calls := 0
		m := newMailer(&raw, &calls)
		require.NoError(t, m.Send(context.Background(), Message{To: "coach@example.com", Subject: "Ready: Zürich Cup", Body: "hi"}))
		assert.Contains(t, string(raw), "Subject: =?utf-8?q?")
		assert.NotContains(t, string(raw), "Zürich")
	})

	t.Run("invalid recipient is rejected", func(t *testing.T) {
		var raw []byte
		calls := 0
		m := newMailer(&raw, &calls)
		err := m.Send(context.Background(), Message{To: "coach@example.com\r\nBcc: attacker@evil.test", Subject: "Hello"})
		require.Error(t, err)
		assert.Equal(t, 0, calls)
	})
}

func TestRenderRecordingReady_FoldsTitleLineBreaks(t *testing.T) {
	msg, err := RenderRecordingReady(queue.RecordingReadyPayload{
		ToEmail:        "coach@example.com",
		RecordingTitle: "Derby\r\nBcc: attacker@evil.test",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "Your recording is ready: Derby Bcc: attacker@evil.test", msg.Subject)
}

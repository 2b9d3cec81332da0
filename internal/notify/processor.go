package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/pkg/queue"
)

// EmailLogger persists delivery outcomes.
type EmailLogger interface {
	Record(ctx context.Context, el *models.EmailLog) error
}

// EmailProcessor delivers queued "recording ready" emails: render, send, log.
type EmailProcessor struct {
	mailer     Mailer
	logs       EmailLogger
	libraryURL string
	logger     *zap.Logger
}

// NewEmailProcessor creates an email processor. libraryURL is linked from the email body when set.
func NewEmailProcessor(mailer Mailer, logs EmailLogger, libraryURL string, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		mailer:     mailer,
		logs:       logs,
		libraryURL: strings.TrimRight(libraryURL, "/"),
		logger:     logger,
	}
}

// Process delivers one job and records the outcome.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeRecordingReady {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.RecordingReadyPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}

	var link string
	if p.libraryURL != "" {
		link = p.libraryURL + "/recordings/" + payload.RecordingID.String()
	}
	msg, err := RenderRecordingReady(payload, link)
	if err != nil {
		return err
	}

	recID := payload.RecordingID
	entry := &models.EmailLog{
		RecordingID:    &recID,
		EmailType:      models.EmailTypeRecordingReady,
		RecipientEmail: payload.ToEmail,
		Subject:        msg.Subject,
		Status:         models.EmailLogStatusSent,
	}
	sendErr := p.mailer.Send(ctx, msg)
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	}
	if p.logs != nil {
		if err := p.logs.Record(ctx, entry); err != nil {
			p.logger.Warn("record email log failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if sendErr != nil {
		return sendErr
	}
	p.logger.Info("recording ready email sent", zap.String("job_id", job.ID), zap.String("recording_id", recID.String()))
	return nil
}

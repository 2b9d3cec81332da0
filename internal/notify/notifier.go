// Package notify tells people with access to a recording that it is ready to watch. Delivery is
// best effort: the reconciler never waits on it and never sees its errors.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/models"
)

// RecordingReadyEmail is the content contract of a "recording ready" notification.
type RecordingReadyEmail struct {
	RecordingID    uuid.UUID
	ToEmail        string
	RecipientName  string
	RecordingTitle string
	MatchDate      time.Time
	VenueName      string
}

// Dispatcher hands one email to the delivery pipeline.
type Dispatcher interface {
	SendRecordingReadyEmail(ctx context.Context, email RecordingReadyEmail) error
}

// RecipientLister returns everyone with active access to a recording.
type RecipientLister interface {
	ActiveRecipients(ctx context.Context, recordingID uuid.UUID) ([]models.Recipient, error)
}

// VenueLookup resolves an organization's display name.
type VenueLookup interface {
	VenueName(ctx context.Context, organizationID uuid.UUID) (string, error)
}

// Notifier fans a ready recording out to its recipients.
type Notifier struct {
	recipients RecipientLister
	venues     VenueLookup
	dispatch   Dispatcher
	logger     *zap.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(recipients RecipientLister, venues VenueLookup, dispatch Dispatcher, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{recipients: recipients, venues: venues, dispatch: dispatch, logger: logger}
}

// RecordingReady dispatches one email per recipient. Failures are logged and dropped.
func (n *Notifier) RecordingReady(ctx context.Context, rec *models.Recording) {
	if rec == nil {
		return
	}
	log := n.logger.With(zap.String("recording_id", rec.ID.String()))

	recipients, err := n.recipients.ActiveRecipients(ctx, rec.ID)
	if err != nil {
		log.Warn("list recording recipients failed", zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		log.Debug("no recipients for ready recording")
		return
	}

	var venue string
	if rec.OrganizationID != nil && n.venues != nil {
		venue, err = n.venues.VenueName(ctx, *rec.OrganizationID)
		if err != nil {
			log.Warn("venue lookup failed", zap.Error(err))
		}
	}

	sent := 0
	for _, r := range recipients {
		if r.Email == "" {
			continue
		}
		err := n.dispatch.SendRecordingReadyEmail(ctx, RecordingReadyEmail{
			RecordingID:    rec.ID,
			ToEmail:        r.Email,
			RecipientName:  r.FullName,
			RecordingTitle: rec.Title,
			MatchDate:      rec.BusinessDate,
			VenueName:      venue,
		})
		if err != nil {
			log.Warn("dispatch recording ready email failed", zap.String("to", r.Email), zap.Error(err))
			continue
		}
		sent++
	}
	log.Info("recording ready notifications dispatched", zap.Int("recipients", len(recipients)), zap.Int("dispatched", sent))
}

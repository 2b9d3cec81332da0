package notify

import (
	"context"

	"github.com/matchvault/backend/pkg/queue"
)

// QueueDispatcher defers delivery to the worker through the Redis email queue.
type QueueDispatcher struct {
	queue *queue.Queue
}

// NewQueueDispatcher creates a dispatcher backed by q.
func NewQueueDispatcher(q *queue.Queue) *QueueDispatcher {
	return &QueueDispatcher{queue: q}
}

// SendRecordingReadyEmail enqueues the email.
func (d *QueueDispatcher) SendRecordingReadyEmail(ctx context.Context, email RecordingReadyEmail) error {
	return d.queue.EnqueueRecordingReady(ctx, queue.RecordingReadyPayload{
		RecordingID:    email.RecordingID,
		ToEmail:        email.ToEmail,
		RecipientName:  email.RecipientName,
		RecordingTitle: email.RecordingTitle,
		MatchDate:      email.MatchDate,
		VenueName:      email.VenueName,
	})
}

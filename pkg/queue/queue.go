package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueSync is the Redis list key for single-session sync jobs.
	QueueSync = "recsync:sync"
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "recsync:emails"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "recsync:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// DequeueTimeout bounds a single BLPOP so workers notice shutdown.
	DequeueTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeSyncSession    JobType = "sync_session"
	JobTypeRecordingReady JobType = "recording_ready_email"
)

// SyncSessionPayload asks the worker to sync one finished session.
type SyncSessionPayload struct {
	SessionID string `json:"session_id"`
	Trigger   string `json:"trigger"`
}

// RecordingReadyPayload is one "your recording is ready" email.
type RecordingReadyPayload struct {
	RecordingID    uuid.UUID `json:"recording_id"`
	ToEmail        string    `json:"to_email"`
	RecipientName  string    `json:"recipient_name,omitempty"`
	RecordingTitle string    `json:"recording_title"`
	MatchDate      time.Time `json:"match_date"`
	VenueName      string    `json:"venue_name,omitempty"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Decode unmarshals the payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

// lists is the subset of the Redis client the queue needs.
type lists interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client lists
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue. *redis.Client satisfies the client argument.
func NewQueue(client lists, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueSyncSession enqueues a single-session sync job.
func (q *Queue) EnqueueSyncSession(ctx context.Context, payload SyncSessionPayload) error {
	job, err := q.enqueue(ctx, QueueSync, JobTypeSyncSession, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued sync session job", zap.String("job_id", job.ID), zap.String("session_id", payload.SessionID))
	return nil
}

// EnqueueRecordingReady enqueues a recording-ready email job.
func (q *Queue) EnqueueRecordingReady(ctx context.Context, payload RecordingReadyPayload) error {
	job, err := q.enqueue(ctx, QueueEmails, JobTypeRecordingReady, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued recording ready email",
		zap.String("job_id", job.ID),
		zap.String("recording_id", payload.RecordingID.String()),
	)
	return nil
}

func (q *Queue) enqueue(ctx context.Context, key string, typ JobType, payload any) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      typ,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return nil, fmt.Errorf("rpush: %w", err)
	}
	return job, nil
}

// Dequeue waits up to DequeueTimeout for a job, sync jobs first. A nil job with a nil error means the wait timed out.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, DequeueTimeout, QueueSync, QueueEmails).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, keyFor(job.Type), raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

func keyFor(t JobType) string {
	if t == JobTypeSyncSession {
		return QueueSync
	}
	return QueueEmails
}

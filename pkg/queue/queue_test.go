package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLists is an in-memory stand-in for Redis lists.
type memLists struct {
	mu    sync.Mutex
	lists map[string][]string
}

func newMemLists() *memLists { return &memLists{lists: map[string][]string{}} }

func (m *memLists) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		switch b := v.(type) {
		case []byte:
			m.lists[key] = append(m.lists[key], string(b))
		case string:
			m.lists[key] = append(m.lists[key], b)
		}
	}
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func (m *memLists) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if len(m.lists[k]) > 0 {
			v := m.lists[k][0]
			m.lists[k] = m.lists[k][1:]
			return redis.NewStringSliceResult([]string{k, v}, nil)
		}
	}
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (m *memLists) len(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists[key])
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	lists := newMemLists()
	q := NewQueue(lists, nil)
	ctx := context.Background()

	payload := RecordingReadyPayload{
		RecordingID:    uuid.New(),
		ToEmail:        "coach@example.com",
		RecordingTitle: "U12 Final",
		MatchDate:      time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		VenueName:      "North Park",
	}
	require.NoError(t, q.EnqueueRecordingReady(ctx, payload))
	assert.Equal(t, 1, lists.len(QueueEmails))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeRecordingReady, job.Type)

	var got RecordingReadyPayload
	require.NoError(t, job.Decode(&got))
	assert.Equal(t, payload.RecordingID, got.RecordingID)
	assert.Equal(t, payload.ToEmail, got.ToEmail)
	assert.True(t, payload.MatchDate.Equal(got.MatchDate))
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q := NewQueue(newMemLists(), nil)
	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestQueue_DequeueInvalidPayload(t *testing.T) {
	lists := newMemLists()
	lists.lists[QueueEmails] = []string{"{not json"}
	q := NewQueue(lists, nil)
	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestQueue_RetryThenDLQ(t *testing.T) {
	lists := newMemLists()
	q := NewQueue(lists, nil)
	ctx := context.Background()
	job := &Job{ID: "j1", Type: JobTypeRecordingReady, Payload: json.RawMessage(`{}`)}

	require.NoError(t, q.Retry(ctx, job))
	require.NoError(t, q.Retry(ctx, job))
	assert.Equal(t, 2, lists.len(QueueEmails))
	assert.Equal(t, 0, lists.len(QueueDLQ))

	require.NoError(t, q.Retry(ctx, job))
	assert.Equal(t, 1, lists.len(QueueDLQ))
	assert.Equal(t, MaxRetries, job.Attempt)
}

func TestQueue_SyncJobsFirst(t *testing.T) {
	lists := newMemLists()
	q := NewQueue(lists, nil)
	ctx := context.Background()

	require.NoError(t, q.EnqueueRecordingReady(ctx, RecordingReadyPayload{ToEmail: "a@example.com"}))
	require.NoError(t, q.EnqueueSyncSession(ctx, SyncSessionPayload{SessionID: "S1", Trigger: "webhook"}))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeSyncSession, job.Type)

	var p SyncSessionPayload
	require.NoError(t, job.Decode(&p))
	assert.Equal(t, "S1", p.SessionID)

	require.NoError(t, q.Retry(ctx, job))
	assert.Equal(t, 1, lists.len(QueueSync))
}

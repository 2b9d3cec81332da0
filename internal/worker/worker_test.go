package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/reconcile"
	"github.com/matchvault/backend/pkg/queue"
)

type scriptedSource struct {
	jobs    []*queue.Job
	retried []*queue.Job
	cancel  context.CancelFunc
}

func (s *scriptedSource) Dequeue(ctx context.Context) (*queue.Job, error) {
	if len(s.jobs) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	j := s.jobs[0]
	s.jobs = s.jobs[1:]
	return j, nil
}

func (s *scriptedSource) Retry(ctx context.Context, job *queue.Job) error {
	s.retried = append(s.retried, job)
	return nil
}

type processorFunc func(ctx context.Context, job *queue.Job) error

func (f processorFunc) Process(ctx context.Context, job *queue.Job) error { return f(ctx, job) }

func syncJob(t *testing.T, sessionID string) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(queue.SyncSessionPayload{SessionID: sessionID, Trigger: "webhook"})
	require.NoError(t, err)
	return &queue.Job{ID: "job-" + sessionID, Type: queue.JobTypeSyncSession, Payload: raw}
}

func runUntilDrained(t *testing.T, r *Runner, cancel context.CancelFunc, ctx context.Context) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("runner did not stop")
	}
}

func TestRunner_RoutesAndRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{cancel: cancel, jobs: []*queue.Job{
		syncJob(t, "ok"),
		syncJob(t, "bad"),
		{ID: "x", Type: "unknown"},
	}}
	var seen []string
	r := NewRunner(src, nil)
	r.backoff = time.Millisecond
	r.Handle(queue.JobTypeSyncSession, processorFunc(func(ctx context.Context, job *queue.Job) error {
		seen = append(seen, job.ID)
		if job.ID == "job-bad" {
			return errors.New("boom")
		}
		return nil
	}))

	runUntilDrained(t, r, cancel, ctx)

	assert.Equal(t, []string{"job-ok", "job-bad"}, seen)
	require.Len(t, src.retried, 2)
	assert.Equal(t, "job-bad", src.retried[0].ID)
	assert.Equal(t, "x", src.retried[1].ID)
}

type fakeSyncer struct {
	sum   reconcile.Summary
	err   error
	calls []string
}

func (f *fakeSyncer) RunSync(ctx context.Context, target string) (reconcile.Summary, error) {
	f.calls = append(f.calls, target)
	return f.sum, f.err
}

type fakeRuns struct{ triggers []string }

func (f *fakeRuns) ObserveRun(trigger string, err error) { f.triggers = append(f.triggers, trigger) }

func TestSyncProcessor(t *testing.T) {
	t.Run("transferred", func(t *testing.T) {
		s := &fakeSyncer{sum: reconcile.Summary{Total: 1, Transferred: 1, Results: []reconcile.Result{{SessionID: "S1", Outcome: reconcile.OutcomeTransferred}}}}
		runs := &fakeRuns{}
		p := NewSyncProcessor(s, runs, nil)
		require.NoError(t, p.Process(context.Background(), syncJob(t, "S1")))
		assert.Equal(t, []string{"S1"}, s.calls)
		assert.Equal(t, []string{"webhook"}, runs.triggers)
	})

	t.Run("session error is retried", func(t *testing.T) {
		s := &fakeSyncer{sum: reconcile.Summary{Total: 1, Errors: 1, Results: []reconcile.Result{{SessionID: "S1", Outcome: reconcile.OutcomeError, Error: "upload failed"}}}}
		p := NewSyncProcessor(s, nil, nil)
		err := p.Process(context.Background(), syncJob(t, "S1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upload failed")
	})

	t.Run("unknown session is dropped", func(t *testing.T) {
		s := &fakeSyncer{err: apperr.NotFound("run sync", "session S9 is not a finished session")}
		p := NewSyncProcessor(s, nil, nil)
		assert.NoError(t, p.Process(context.Background(), syncJob(t, "S9")))
	})

	t.Run("missing session id", func(t *testing.T) {
		p := NewSyncProcessor(&fakeSyncer{}, nil, nil)
		assert.Error(t, p.Process(context.Background(), syncJob(t, "")))
	})
}

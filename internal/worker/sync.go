package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/reconcile"
	"github.com/matchvault/backend/pkg/queue"
)

// SessionSyncer runs a sync scoped to one session. *reconcile.Reconciler satisfies it.
type SessionSyncer interface {
	RunSync(ctx context.Context, targetSessionID string) (reconcile.Summary, error)
}

// RunRecorder counts invocations per trigger. *metrics.Sync satisfies it.
type RunRecorder interface {
	ObserveRun(trigger string, err error)
}

// SyncProcessor handles sync_session jobs queued by the platform webhook.
type SyncProcessor struct {
	sync   SessionSyncer
	runs   RunRecorder
	logger *zap.Logger
}

// NewSyncProcessor creates a sync job processor. runs may be nil.
func NewSyncProcessor(sync SessionSyncer, runs RunRecorder, logger *zap.Logger) *SyncProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncProcessor{sync: sync, runs: runs, logger: logger}
}

// Process syncs the job's session. Per-session errors are retried through the queue; a session the
// platform no longer lists as finished is dropped.
func (p *SyncProcessor) Process(ctx context.Context, job *queue.Job) error {
	var payload queue.SyncSessionPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}
	if payload.SessionID == "" {
		return fmt.Errorf("sync job %s: session id required", job.ID)
	}
	trigger := payload.Trigger
	if trigger == "" {
		trigger = "queue"
	}

	sum, err := p.sync.RunSync(ctx, payload.SessionID)
	if p.runs != nil {
		p.runs.ObserveRun(trigger, err)
	}
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			p.logger.Warn("sync job for unknown session dropped", zap.String("session_id", payload.SessionID))
			return nil
		}
		return err
	}
	for _, r := range sum.Results {
		if r.Outcome == reconcile.OutcomeError {
			return fmt.Errorf("sync session %s: %s", r.SessionID, r.Error)
		}
	}
	p.logger.Info("sync job finished", zap.String("session_id", payload.SessionID), zap.Int("transferred", sum.Transferred), zap.Int("processing", sum.Processing))
	return nil
}

package worker

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/reconcile"
	"github.com/matchvault/backend/pkg/redis"
)

// TickLockKey guards the scheduled tick across worker replicas.
const TickLockKey = "recsync:tick"

// BacklogTicker advances the backlog by one session. *reconcile.Reconciler satisfies it.
type BacklogTicker interface {
	RunNext(ctx context.Context) (reconcile.Summary, error)
}

// Locker takes a short-lived exclusive lock. *redis.Client satisfies it.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Scheduler runs RunNext on a cron spec. Ticks never overlap: cron skips a tick while the
// previous one runs, and the optional lock extends that across replicas.
type Scheduler struct {
	ticker  BacklogTicker
	locker  Locker
	runs    RunRecorder
	timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler creates a scheduler. timeout bounds one tick and doubles as the lock TTL;
// locker and runs may be nil.
func NewScheduler(ticker BacklogTicker, locker Locker, runs RunRecorder, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{ticker: ticker, locker: locker, runs: runs, timeout: timeout, logger: logger}
}

// Start registers the tick on spec and starts cron. Stop the returned cron to end scheduling.
func (s *Scheduler) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { s.Tick(ctx) }); err != nil {
		return nil, err
	}
	c.Start()
	s.logger.Info("sync schedule started", zap.String("spec", spec))
	return c, nil
}

// Tick runs one RunNext under the lock.
func (s *Scheduler) Tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, TickLockKey, s.timeout)
		if errors.Is(err, redis.ErrLockHeld) {
			s.logger.Debug("sync tick skipped: another replica holds the lock")
			return
		}
		if err != nil {
			s.logger.Warn("sync tick lock failed", zap.Error(err))
			return
		}
		defer release()
	}

	sum, err := s.ticker.RunNext(ctx)
	if s.runs != nil {
		s.runs.ObserveRun("cron", err)
	}
	if err != nil {
		s.logger.Error("scheduled sync failed", zap.Error(err))
		return
	}
	if len(sum.Results) == 0 {
		s.logger.Debug("sync tick: nothing pending")
		return
	}
	res := sum.Results[0]
	s.logger.Info("sync tick finished",
		zap.String("session_id", res.SessionID),
		zap.String("outcome", string(res.Outcome)),
	)
}

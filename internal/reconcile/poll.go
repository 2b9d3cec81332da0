package reconcile

import (
	"context"
	"time"
)

// Default export wait budget.
const (
	DefaultPollMaxWait  = 10 * time.Minute
	DefaultPollInterval = 5 * time.Second
)

// Poller waits for an export to reach 100% within a fixed budget.
type Poller struct {
	MaxWait  time.Duration
	Interval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// PollResult is the state the export was left in.
type PollResult struct {
	Done     bool
	Progress int
	Polls    int
	Elapsed  time.Duration
}

// NewPoller returns a Poller; zero durations fall back to the defaults.
func NewPoller(maxWait, interval time.Duration) *Poller {
	if maxWait <= 0 {
		maxWait = DefaultPollMaxWait
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{MaxWait: maxWait, Interval: interval, now: time.Now, sleep: sleepCtx}
}

// Wait polls once per interval until progress reaches 100 or the next sleep would cross MaxWait.
// Running out of budget is not an error; the caller reports the export as still processing.
func (p *Poller) Wait(ctx context.Context, exportID string, poll func(ctx context.Context, exportID string) (int, error)) (PollResult, error) {
	start := p.now()
	var res PollResult
	for {
		pct, err := poll(ctx, exportID)
		res.Polls++
		res.Elapsed = p.now().Sub(start)
		if err != nil {
			return res, err
		}
		res.Progress = pct
		if pct >= 100 {
			res.Done = true
			return res, nil
		}
		if res.Elapsed+p.Interval >= p.MaxWait {
			return res, nil
		}
		if err := p.sleep(ctx, p.Interval); err != nil {
			return res, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

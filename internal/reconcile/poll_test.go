package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClockPoller(maxWait, interval time.Duration) *Poller {
	clock := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)
	p := NewPoller(maxWait, interval)
	p.now = func() time.Time { return clock }
	p.sleep = func(_ context.Context, d time.Duration) error {
		clock = clock.Add(d)
		return nil
	}
	return p
}

func TestPoller_StopsBeforeBudget(t *testing.T) {
	p := fakeClockPoller(10*time.Minute, 5*time.Second)
	res, err := p.Wait(context.Background(), "E1", func(context.Context, string) (int, error) {
		return 55, nil
	})
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, 55, res.Progress)
	assert.Equal(t, 120, res.Polls)
	assert.Equal(t, 595*time.Second, res.Elapsed)
}

func TestPoller_DoneOnFirstPoll(t *testing.T) {
	p := fakeClockPoller(time.Minute, time.Second)
	res, err := p.Wait(context.Background(), "E1", func(context.Context, string) (int, error) {
		return 100, nil
	})
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 1, res.Polls)
}

func TestPoller_ProgressReachesDone(t *testing.T) {
	p := fakeClockPoller(time.Minute, time.Second)
	seq := []int{0, 30, 70, 100}
	i := 0
	res, err := p.Wait(context.Background(), "E1", func(context.Context, string) (int, error) {
		v := seq[i]
		i++
		return v, nil
	})
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 4, res.Polls)
	assert.Equal(t, 3*time.Second, res.Elapsed)
}

func TestPoller_PollError(t *testing.T) {
	p := fakeClockPoller(time.Minute, time.Second)
	boom := errors.New("boom")
	_, err := p.Wait(context.Background(), "E1", func(context.Context, string) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPoller_WallClockBound(t *testing.T) {
	maxWait := 80 * time.Millisecond
	interval := 20 * time.Millisecond
	p := NewPoller(maxWait, interval)

	start := time.Now()
	res, err := p.Wait(context.Background(), "E1", func(context.Context, string) (int, error) {
		return 10, nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Less(t, elapsed, maxWait+interval+50*time.Millisecond)
}

func TestPoller_ContextCancelled(t *testing.T) {
	p := NewPoller(time.Minute, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := p.Wait(ctx, "E1", func(context.Context, string) (int, error) {
		calls++
		cancel()
		return 5, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewPoller_Defaults(t *testing.T) {
	p := NewPoller(0, 0)
	assert.Equal(t, DefaultPollMaxWait, p.MaxWait)
	assert.Equal(t, DefaultPollInterval, p.Interval)
}

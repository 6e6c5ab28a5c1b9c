package catalog

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pacer spaces consecutive requests by at least interval, measured from the
// start of one request to the start of the next. It reserves a
// token at the injected clock's time and sleeps through the sleeper, so a
// long backoff already covers the pacing delay of the next request.
type pacer struct {
	limiter *rate.Limiter
	now     func() time.Time
	sleep   Sleeper
}

func newPacer(interval time.Duration, now func() time.Time, sleep Sleeper) *pacer {
	if interval <= 0 {
		return &pacer{now: now, sleep: sleep}
	}
	return &pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		now:     now,
		sleep:   sleep,
	}
}

func (p *pacer) wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	now := p.now()
	delay := p.limiter.ReserveN(now, 1).DelayFrom(now)
	if delay <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, delay)
}

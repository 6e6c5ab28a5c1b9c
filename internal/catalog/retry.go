package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"romsift/internal/logging"
	"romsift/internal/retroachievements"
	"romsift/internal/services"
)

// DefaultBackoff is the wait before each retry of a throttled request.
var DefaultBackoff = []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}

type requestState int

const (
	stateRequesting requestState = iota
	stateBackoff
	stateSucceeded
	stateFailed
)

func (s requestState) String() string {
	switch s {
	case stateRequesting:
		return "requesting"
	case stateBackoff:
		return "backoff"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// retrier drives one logical request through Requesting, Backoff(attempt),
// Succeeded and Failed. Only throttled responses move to Backoff; every
// other failure is terminal. Once the schedule is exhausted a throttled
// response fails with ErrRateLimitExceeded.
type retrier struct {
	backoff []time.Duration
	sleep   Sleeper
	pace    *pacer
	logger  *slog.Logger
	// requests counts every HTTP attempt, for the fetch summary.
	requests int
}

func do[T any](ctx context.Context, r *retrier, label string, call func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		value   T
		lastErr error
		attempt int
		state   = stateRequesting
	)
	for {
		switch state {
		case stateRequesting:
			if err := r.pace.wait(ctx); err != nil {
				lastErr = services.Wrap(services.ErrNetwork, "fetcher", label, "pacing interrupted", err)
				state = stateFailed
				continue
			}
			r.requests++
			var err error
			value, err = call(ctx)
			switch {
			case err == nil:
				state = stateSucceeded
			case retroachievements.IsThrottled(err) && attempt < len(r.backoff):
				lastErr = err
				state = stateBackoff
			case retroachievements.IsThrottled(err):
				lastErr = services.Wrap(services.ErrRateLimitExceeded, "fetcher", label,
					fmt.Sprintf("still throttled after %d attempts", attempt+1), err)
				state = stateFailed
			default:
				lastErr = err
				state = stateFailed
			}
		case stateBackoff:
			wait := r.backoff[attempt]
			attempt++
			logging.WarnWithContext(r.logger, "rate limited; backing off", "fetch_throttled",
				logging.String("request", label),
				logging.Int("retry", attempt),
				logging.Int("max_retries", len(r.backoff)),
				logging.Duration("wait", wait),
				logging.String(logging.FieldImpact, "catalog retrieval paused"),
				logging.String(logging.FieldErrorHint, "no action needed unless retries are exhausted"),
			)
			if err := r.sleep(ctx, wait); err != nil {
				lastErr = services.Wrap(services.ErrNetwork, "fetcher", label, "backoff interrupted", err)
				state = stateFailed
				continue
			}
			state = stateRequesting
		case stateSucceeded:
			return value, nil
		case stateFailed:
			return zero, lastErr
		}
	}
}

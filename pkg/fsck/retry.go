package fsck

import (
	"context"
	"errors"
	"time"
)

// ErrRetriesExhausted is returned by Poll when the policy's attempt budget
// runs out before the condition holds.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy controls how Poll re-invokes a check while the cluster's
// replica view converges. Retry policy belongs to the caller, never to the
// core: the checker's read operations are idempotent and side-effect-free,
// so repeating them is always safe.
type RetryPolicy struct {
	// Interval is the delay before the first retry (default 100ms)
	Interval time.Duration

	// Multiplier scales the delay after each attempt; values below 1 mean
	// a fixed interval
	Multiplier float64

	// MaxInterval caps the delay when Multiplier grows it (0 = no cap)
	MaxInterval time.Duration

	// MaxAttempts bounds the number of invocations of fn; 0 means retry
	// until the context is cancelled
	MaxAttempts int
}

// DefaultRetryPolicy polls on a fixed 100ms interval until the caller's
// context gives up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Interval: 100 * time.Millisecond, Multiplier: 1}
}

// Poll invokes fn until it reports done, the policy's attempts are
// exhausted, fn fails, or ctx is cancelled.
//
// fn returns (done, err): done stops polling with success, a non-nil err
// stops polling immediately and is returned as-is.
func Poll(ctx context.Context, policy RetryPolicy, fn func(context.Context) (bool, error)) error {
	interval := policy.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	multiplier := policy.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	for attempt := 1; ; attempt++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return ErrRetriesExhausted
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		interval = time.Duration(float64(interval) * multiplier)
		if policy.MaxInterval > 0 && interval > policy.MaxInterval {
			interval = policy.MaxInterval
		}
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backoff runs an operation under a bounded retry policy with
// doubling, jittered delays between failed attempts.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pdiddy/pubfetch/pkg/types"
)

// ErrExhausted is wrapped by the error returned when every attempt failed.
var ErrExhausted = errors.New("all attempts failed")

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the production Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retrier executes an operation up to Policy.MaxAttempts times. After the
// n-th failure it sleeps base*2^(n-1) (capped at MaxDelay) plus a random
// jitter in [0, Jitter). There is no sleep after the final attempt.
type Retrier struct {
	Policy types.RetryPolicy

	// Sleep defaults to the package Sleep.
	Sleep Sleeper

	// Rand returns a value in [0, 1). Defaults to math/rand/v2.
	Rand func() float64

	// OnRetry, when set, is called before each backoff sleep.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Do runs fn until it succeeds, the attempts are used up, or ctx is done.
// attempt is 1-based.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	maxAttempts := r.Policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = types.DefaultMaxAttempts
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	delay := r.Policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == maxAttempts {
			break
		}

		wait := delay + Jitter(r.Policy.Jitter, r.Rand)
		if r.OnRetry != nil {
			r.OnRetry(attempt, lastErr, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}

		delay *= 2
		if r.Policy.MaxDelay > 0 && delay > r.Policy.MaxDelay {
			delay = r.Policy.MaxDelay
		}
	}
	return fmt.Errorf("%w (%d attempts): %w", ErrExhausted, maxAttempts, lastErr)
}

// Jitter returns a random duration in [0, limit). rnd may be nil.
func Jitter(limit time.Duration, rnd func() float64) time.Duration {
	if limit <= 0 {
		return 0
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	return time.Duration(rnd() * float64(limit))
}

// Between returns a random duration in [lo, hi). When hi <= lo it returns lo.
func Between(lo, hi time.Duration, rnd func() float64) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + Jitter(hi-lo, rnd)
}

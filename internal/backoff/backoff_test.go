// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubfetch/pkg/types"
)

// recordSleeps returns a Sleeper that records durations without waiting.
func recordSleeps(got *[]time.Duration) Sleeper {
	return func(_ context.Context, d time.Duration) error {
		*got = append(*got, d)
		return nil
	}
}

func fixedRand(v float64) func() float64 {
	return func() float64 { return v }
}

var testPolicy = types.RetryPolicy{
	MaxAttempts: 6,
	BaseDelay:   5 * time.Second,
	Jitter:      6 * time.Second,
	MaxDelay:    60 * time.Second,
}

func TestDo_ImmediateSuccess(t *testing.T) {
	var sleeps []time.Duration
	r := &Retrier{Policy: testPolicy, Sleep: recordSleeps(&sleeps), Rand: fixedRand(0)}

	calls := 0
	err := r.Do(context.Background(), func(context.Context, int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	var sleeps []time.Duration
	r := &Retrier{Policy: testPolicy, Sleep: recordSleeps(&sleeps), Rand: fixedRand(0.5)}

	var attempts []int
	err := r.Do(context.Background(), func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return errors.New("blocked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	// 5s+3s jitter, then 10s+3s jitter.
	assert.Equal(t, []time.Duration{8 * time.Second, 13 * time.Second}, sleeps)
}

func TestDo_DelayDoublesUpToCap(t *testing.T) {
	var sleeps []time.Duration
	policy := testPolicy
	policy.MaxAttempts = 7
	r := &Retrier{Policy: policy, Sleep: recordSleeps(&sleeps), Rand: fixedRand(0)}

	err := r.Do(context.Background(), func(context.Context, int) error {
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}, sleeps)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var sleeps []time.Duration
	r := &Retrier{Policy: testPolicy, Sleep: recordSleeps(&sleeps), Rand: fixedRand(0)}

	last := errors.New("still blocked")
	calls := 0
	err := r.Do(context.Background(), func(context.Context, int) error {
		calls++
		return last
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, 6, calls)
	// No sleep after the final attempt.
	assert.Len(t, sleeps, 5)
}

func TestDo_FailFastPolicy(t *testing.T) {
	var sleeps []time.Duration
	r := &Retrier{Policy: types.RetryPolicy{MaxAttempts: 1}, Sleep: recordSleeps(&sleeps)}

	calls := 0
	err := r.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestDo_DefaultMaxAttempts(t *testing.T) {
	var sleeps []time.Duration
	r := &Retrier{Sleep: recordSleeps(&sleeps)}

	calls := 0
	_ = r.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("boom")
	})
	assert.Equal(t, types.DefaultMaxAttempts, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var sleeps []time.Duration
	var seen []int
	r := &Retrier{
		Policy: testPolicy,
		Sleep:  recordSleeps(&sleeps),
		Rand:   fixedRand(0),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			seen = append(seen, attempt)
			assert.EqualError(t, err, "nope")
		},
	}
	_ = r.Do(context.Background(), func(_ context.Context, attempt int) error {
		if attempt == 3 {
			return nil
		}
		return errors.New("nope")
	})
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := &Retrier{Policy: types.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}}
	err := r.Do(ctx, func(context.Context, int) error {
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_ContextCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	r := &Retrier{Policy: testPolicy}
	err := r.Do(ctx, func(context.Context, int) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestJitterAndBetween(t *testing.T) {
	assert.Equal(t, time.Duration(0), Jitter(0, nil))
	assert.Equal(t, 3*time.Second, Jitter(6*time.Second, fixedRand(0.5)))

	assert.Equal(t, 600*time.Millisecond, Between(600*time.Millisecond, time.Second, fixedRand(0)))
	assert.Equal(t, 800*time.Millisecond, Between(600*time.Millisecond, time.Second, fixedRand(0.5)))
	assert.Equal(t, time.Second, Between(time.Second, time.Second, nil))

	for i := 0; i < 100; i++ {
		d := Between(600*time.Millisecond, time.Second, nil)
		assert.GreaterOrEqual(t, d, 600*time.Millisecond)
		assert.Less(t, d, time.Second)
	}
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
	require.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

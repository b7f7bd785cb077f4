package talentq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	ex := NewRetryExecutor(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}, NopLogger{})
	calls := 0
	err := ex.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestRetry_PermanentFailsOnce(t *testing.T) {
	ex := NewRetryExecutor(RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, Multiplier: 2}, NopLogger{})
	calls := 0
	boom := &HTTPError{Status: 400, Body: "bad request"}
	err := ex.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return boom
	})
	require.Error(t, err)
	require.Equal(t, 1, calls, "non-retryable failure must not consume remaining attempts")
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, 400, he.Status)
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	base := 10 * time.Millisecond
	ex := NewRetryExecutor(RetryPolicy{MaxAttempts: 5, BaseDelay: base, Multiplier: 2}, NopLogger{})
	calls := 0
	start := time.Now()
	err := ex.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls <= 2 {
			return &HTTPError{Status: 503, Body: "overloaded"}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	// total sleep must be at least base*2^0 + base*2^1
	require.GreaterOrEqual(t, time.Since(start), 3*base)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	ex := NewRetryExecutor(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}, NopLogger{})
	calls := 0
	err := ex.Do(context.Background(), "fetch-thing", func(context.Context) error {
		calls++
		return &HTTPError{Status: 500, Body: "boom"}
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.Contains(t, err.Error(), "fetch-thing")
	require.Contains(t, err.Error(), "3 attempts")
}

func TestRetry_ContextCancelAbortsBackoff(t *testing.T) {
	ex := NewRetryExecutor(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, Multiplier: 2}, NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := ex.Do(ctx, "op", func(context.Context) error {
		return &HTTPError{Status: 502, Body: "gateway"}
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetry_TelemetryPerAttempt(t *testing.T) {
	ex := NewRetryExecutor(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}, NopLogger{})
	var recs []AttemptRecord
	ex.OnAttempt = func(r AttemptRecord) { recs = append(recs, r) }

	calls := 0
	err := ex.Do(context.Background(), "tele", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient-ish")
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, 1, recs[0].Attempt)
	require.False(t, recs[0].Success)
	require.Equal(t, 2, recs[1].Attempt)
	require.True(t, recs[1].Success)
	require.Equal(t, "tele", recs[1].Operation)
}

func TestRetryable_Classification(t *testing.T) {
	require.False(t, Retryable(nil))
	require.False(t, Retryable(&HTTPError{Status: 404}))
	require.False(t, Retryable(&HTTPError{Status: 422}))
	require.True(t, Retryable(&HTTPError{Status: 429}))
	require.True(t, Retryable(&HTTPError{Status: 500}))
	require.True(t, Retryable(&HTTPError{Status: 503}))
	require.True(t, Retryable(&net.DNSError{IsTimeout: true}))
	require.False(t, Retryable(Permanent(errors.New("nope"))))
	require.False(t, Retryable(context.Canceled))
	require.False(t, Retryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	// unclassified errors default to transient
	require.True(t, Retryable(errors.New("mystery")))
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, Multiplier: 2}
	require.Equal(t, time.Second, p.Delay(1))
	require.Equal(t, 2*time.Second, p.Delay(2))
	require.Equal(t, 4*time.Second, p.Delay(3))

	j := RetryPolicy{BaseDelay: time.Second, Multiplier: 2, Jitter: 0.5}
	d := j.Delay(1)
	require.GreaterOrEqual(t, d, 500*time.Millisecond)
	require.LessOrEqual(t, d, 1500*time.Millisecond)
}

func TestPermanent_NilPassthrough(t *testing.T) {
	require.NoError(t, Permanent(nil))
	wrapped := Permanent(ErrJobNotFound)
	require.ErrorIs(t, wrapped, ErrJobNotFound)
}

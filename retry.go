package talentq

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"os"
	"time"
)

// RetryPolicy configures how RetryExecutor spaces and bounds attempts.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts int
	// BaseDelay is the sleep before the second attempt; doubled (times
	// Multiplier) for every attempt after that.
	BaseDelay time.Duration
	// Multiplier is the backoff growth factor per attempt.
	Multiplier float64
	// Jitter is a fraction (0..1) of the computed delay added or subtracted
	// at random. Zero keeps retry timing deterministic.
	Jitter float64
}

// DefaultRetryPolicy returns the policy used by all outbound AI/HTTP calls:
// 3 attempts, 1s base delay, pure exponential doubling, no jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}
}

// Delay returns the backoff to sleep after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(d)
}

// AttemptRecord is one telemetry record emitted per attempt.
type AttemptRecord struct {
	Operation string
	Attempt   int
	Duration  time.Duration
	Success   bool
	Err       error
}

// HTTPError carries the status code of a non-2xx response from an outbound
// dependency so the retry classifier can split client from server failures.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as non-retryable regardless of classification.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable classifies an error as transient (network failure, timeout,
// HTTP 5xx) or permanent (HTTP 4xx, explicit Permanent, context cancellation).
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *permanentError
	if errors.As(err, &pe) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status >= 500 || he.Status == 429
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	// Unclassified errors are treated as transient; the attempt bound still
	// caps the damage and AI providers fail with plain errors surprisingly often.
	return true
}

// RetryExecutor runs unreliable remote operations with bounded retries and
// exponential backoff. The zero value is not usable; use NewRetryExecutor.
type RetryExecutor struct {
	policy RetryPolicy
	log    Logger
	// OnAttempt, when set, receives one record per attempt. Used for
	// external-call telemetry.
	OnAttempt func(AttemptRecord)
}

// NewRetryExecutor creates an executor with the given policy.
// A nil logger disables attempt logging.
func NewRetryExecutor(policy RetryPolicy, log Logger) *RetryExecutor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = 2
	}
	if log == nil {
		log = NopLogger{}
	}
	return &RetryExecutor{policy: policy, log: log}
}

// Do executes op, retrying transient failures up to the policy's attempt
// bound. Permanent failures propagate immediately without consuming the
// remaining attempts. The last error is returned once attempts are
// exhausted, tagged with the operation name and attempt count.
func (r *RetryExecutor) Do(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		start := time.Now()
		err := op(ctx)
		r.record(AttemptRecord{
			Operation: operation,
			Attempt:   attempt,
			Duration:  time.Since(start),
			Success:   err == nil,
			Err:       err,
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if !Retryable(err) {
			r.log.Warnf("retry: %s permanent failure on attempt %d: %v", operation, attempt, err)
			return fmt.Errorf("%s: %w", operation, err)
		}
		if attempt == r.policy.MaxAttempts {
			break
		}
		delay := r.policy.Delay(attempt)
		r.log.Warnf("retry: %s attempt %d failed, retrying in %s: %v", operation, attempt, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %d attempts exhausted: %w", operation, r.policy.MaxAttempts, lastErr)
}

func (r *RetryExecutor) record(rec AttemptRecord) {
	if r.OnAttempt != nil {
		r.OnAttempt(rec)
	}
	if rec.Success {
		r.log.Debugf("retry: %s attempt %d ok in %s", rec.Operation, rec.Attempt, rec.Duration)
	}
}

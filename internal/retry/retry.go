// Package retry provides the retry policy applied around every oracle call
// (embedding, completion, web search). The policy is a value, independent of
// any call site: max attempts, exponential backoff, and a predicate deciding
// which errors are worth retrying. Transient provider failures (rate limit,
// quota, timeout) are retried; everything else fails fast.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default policy parameters, matching the bounded three-attempt discipline
// used for all provider calls.
const (
	// DefaultMaxAttempts is the total number of attempts (first call + retries).
	DefaultMaxAttempts = 3

	// defaultInitialInterval is the first backoff delay.
	defaultInitialInterval = 1 * time.Second

	// defaultMaxInterval caps the exponential growth of the delay.
	defaultMaxInterval = 15 * time.Second
)

// Policy describes how an operation is retried. The zero value is usable and
// applies the defaults above with a retry-nothing predicate, which degrades
// to a single attempt — callers almost always want to set Retryable.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 are treated as DefaultMaxAttempts.
	MaxAttempts int

	// InitialInterval is the delay before the first retry. Subsequent delays
	// grow exponentially (with jitter) up to MaxInterval.
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay.
	MaxInterval time.Duration

	// Retryable reports whether err is transient and worth retrying.
	// A nil predicate retries nothing.
	Retryable func(error) bool
}

// Do runs op, retrying per the policy. It returns nil on the first success,
// the last error once attempts are exhausted, or immediately when Retryable
// rejects the error or ctx is cancelled.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	if bo.InitialInterval <= 0 {
		bo.InitialInterval = defaultInitialInterval
	}
	bo.MaxInterval = p.MaxInterval
	if bo.MaxInterval <= 0 {
		bo.MaxInterval = defaultMaxInterval
	}
	// MaxElapsedTime is bounded by the attempt count instead.
	bo.MaxElapsedTime = 0
	bo.Reset()

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	// backoff counts retries, not attempts.
	b := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(attempts-1))
	return backoff.Retry(wrapped, b) //nolint:wrapcheck // op errors surface unchanged
}

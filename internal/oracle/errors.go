package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ProviderError wraps a failure from an external provider (LLM, embedding,
// search) and records whether it is transient. Transient errors (rate limit,
// quota, timeout) are retried by the retry policy; permanent errors
// (auth, invalid request) surface immediately.
type ProviderError struct {
	// Op is the provider operation that failed (e.g. "complete", "embed").
	Op string
	// Retryable indicates the failure is transient.
	Retryable bool
	// Err is the underlying provider error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}
	return fmt.Sprintf("oracle: %s: %s provider error: %v", e.Op, kind, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *ProviderError) Unwrap() error { return e.Err }

// transientFragments are lowercase substrings that identify rate-limit,
// quota and timeout failures across providers. Providers do not share a
// typed error surface, so message matching is the lowest common denominator.
var transientFragments = []string{
	"quota",
	"rate limit",
	"ratelimit",
	"too many requests",
	"429",
	"timeout",
	"deadline exceeded",
	"temporarily unavailable",
	"503",
	"overloaded",
	"connection reset",
	"connection refused",
}

// Classify wraps err as a ProviderError for op, tagging it transient when
// the failure looks like a rate-limit/quota/timeout condition.
func Classify(op string, err error) error {
	retryable := errors.Is(err, context.DeadlineExceeded)
	if !retryable {
		msg := strings.ToLower(err.Error())
		for _, f := range transientFragments {
			if strings.Contains(msg, f) {
				retryable = true
				break
			}
		}
	}
	return &ProviderError{Op: op, Retryable: retryable, Err: err}
}

// IsTransient reports whether err is (or wraps) a retryable ProviderError.
// It is the predicate handed to the retry policy at every provider call site.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

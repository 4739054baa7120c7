package server

import (
	"testing"
	"time"

	"github.com/veritaslegal/lexdraft-go/internal/logging"
)

func TestRateLimiter_PerIPBuckets(t *testing.T) {
	t.Parallel()

	// burst=1, rps tiny: the second request from the same IP must be
	// rejected, while a different IP still has its own full bucket.
	rl, stop := newRateLimiter(0.001, 1, logging.Discard())
	defer stop()

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request from A should be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Error("second request from A should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("request from B should be independent of A")
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(1, 1, logging.Discard())
	defer stop()

	rl.allow("10.0.0.1")
	rl.allow("10.0.0.2")

	rl.evict(time.Now().Add(time.Second))

	rl.mu.Lock()
	n := len(rl.buckets)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("buckets after eviction = %d, want 0", n)
	}
}

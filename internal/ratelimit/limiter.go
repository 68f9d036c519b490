// Package ratelimit bounds per-identity request rates against logical
// endpoints using fixed, non-overlapping time buckets backed by a remote
// counter store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Counter is the remote counter-store boundary. Incr must have atomic
// increment-returns-new-value semantics.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Result is the outcome of one rate-limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetIn is the time until the current bucket boundary.
	ResetIn time.Duration
}

// Limiter counts requests per (endpoint, identity, bucket) where
// bucket = floor(now / window). Keys expire at twice the window, so
// stale buckets clean themselves up without a sweep.
type Limiter struct {
	counter Counter
	now     func() time.Time
}

// NewLimiter creates a Limiter over the given counter store.
func NewLimiter(counter Counter) *Limiter {
	return &Limiter{counter: counter, now: time.Now}
}

// Allow checks and consumes one request for identity against endpoint.
//
// It fails open: if the counter store cannot be reached the request is
// allowed with full remaining allowance and the error is logged.
// Availability wins over strict enforcement here; unavailability of the
// counter store must never block legitimate traffic.
func (l *Limiter) Allow(ctx context.Context, identity, endpoint string, maxRequests int, window time.Duration) Result {
	windowSecs := int64(window.Seconds())
	nowSecs := l.now().Unix()
	bucket := nowSecs / windowSecs
	key := fmt.Sprintf("ratelimit:%s:%s:%d", endpoint, identity, bucket)

	count, err := l.counter.Incr(ctx, key)
	if err != nil {
		log.Warn().Err(err).
			Str("endpoint", endpoint).
			Str("identity", identity).
			Msg("Rate limit counter unavailable, failing open")
		return Result{Allowed: true, Limit: maxRequests, Remaining: maxRequests, ResetIn: window}
	}

	// First hit in a bucket sets the expiry; losing this write only
	// delays cleanup, never affects counting.
	if count == 1 {
		if err := l.counter.Expire(ctx, key, 2*window); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to set rate limit key expiry")
		}
	}

	remaining := maxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	resetIn := time.Duration((bucket+1)*windowSecs-nowSecs) * time.Second

	return Result{
		Allowed:   count <= int64(maxRequests),
		Limit:     maxRequests,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}

// NopCounter is the always-allow stub implementation of Counter,
// selected at startup when no counter store is configured. It reports
// zero usage so every check passes with full allowance.
type NopCounter struct{}

func (NopCounter) Incr(context.Context, string) (int64, error)          { return 0, nil }
func (NopCounter) Expire(context.Context, string, time.Duration) error { return nil }

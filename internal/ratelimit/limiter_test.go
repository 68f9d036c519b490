package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeCounter is an in-memory Counter with injectable failures.
type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int64), ttls: make(map[string]time.Duration)}
}

func (f *fakeCounter) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ttls[key] = ttl
	return nil
}

// fixedLimiter returns a limiter with a controllable clock.
func fixedLimiter(counter Counter, start time.Time) (*Limiter, *time.Time) {
	current := start
	l := NewLimiter(counter)
	l.now = func() time.Time { return current }
	return l, &current
}

// TestAllow_WindowExhaustion: maxRequests=3, window=60s, four rapid
// calls. Allowed for the first three, denied on the fourth, remaining
// 2,1,0,0, resetIn within (0, 60s].
func TestAllow_WindowExhaustion(t *testing.T) {
	counter := newFakeCounter()
	limiter, _ := fixedLimiter(counter, time.Unix(1_750_000_030, 0))
	ctx := context.Background()

	wantAllowed := []bool{true, true, true, false}
	wantRemaining := []int{2, 1, 0, 0}

	for i := 0; i < 4; i++ {
		result := limiter.Allow(ctx, "user-1", "enhance", 3, 60*time.Second)
		assert.Equal(t, wantAllowed[i], result.Allowed, "call %d", i+1)
		assert.Equal(t, wantRemaining[i], result.Remaining, "call %d", i+1)
		assert.Greater(t, result.ResetIn, time.Duration(0), "call %d", i+1)
		assert.LessOrEqual(t, result.ResetIn, 60*time.Second, "call %d", i+1)
	}
}

// TestAllow_BucketRollover: two calls straddling a bucket boundary reset
// the count in the new bucket regardless of the previous bucket's count.
func TestAllow_BucketRollover(t *testing.T) {
	counter := newFakeCounter()
	limiter, clock := fixedLimiter(counter, time.Unix(1_750_000_055, 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := limiter.Allow(ctx, "user-1", "invite", 3, 60*time.Second)
		assert.Equal(t, 2-i, result.Remaining)
	}

	// Cross into the next bucket.
	*clock = time.Unix(1_750_000_061, 0)
	result := limiter.Allow(ctx, "user-1", "invite", 3, 60*time.Second)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining, "count restarts at 1 in the new bucket")
}

func TestAllow_KeyExpirySetOnce(t *testing.T) {
	counter := newFakeCounter()
	limiter, _ := fixedLimiter(counter, time.Unix(1_750_000_000, 0))
	ctx := context.Background()

	limiter.Allow(ctx, "user-1", "enhance", 5, 60*time.Second)
	limiter.Allow(ctx, "user-1", "enhance", 5, 60*time.Second)

	assert.Len(t, counter.ttls, 1, "expiry set only on the first hit")
	for _, ttl := range counter.ttls {
		assert.Equal(t, 120*time.Second, ttl, "keys expire at twice the window")
	}
}

func TestAllow_IdentityAndEndpointIsolation(t *testing.T) {
	counter := newFakeCounter()
	limiter, _ := fixedLimiter(counter, time.Unix(1_750_000_000, 0))
	ctx := context.Background()

	limiter.Allow(ctx, "user-1", "enhance", 2, 60*time.Second)
	limiter.Allow(ctx, "user-1", "enhance", 2, 60*time.Second)
	denied := limiter.Allow(ctx, "user-1", "enhance", 2, 60*time.Second)
	assert.False(t, denied.Allowed)

	// Another identity and another endpoint are unaffected.
	assert.True(t, limiter.Allow(ctx, "user-2", "enhance", 2, 60*time.Second).Allowed)
	assert.True(t, limiter.Allow(ctx, "user-1", "invite", 2, 60*time.Second).Allowed)
}

// TestAllow_FailOpen: counter store errors never block traffic.
func TestAllow_FailOpen(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")
	limiter, _ := fixedLimiter(counter, time.Unix(1_750_000_000, 0))

	result := limiter.Allow(context.Background(), "user-1", "enhance", 3, 60*time.Second)

	assert.True(t, result.Allowed)
	assert.Equal(t, 3, result.Remaining, "fail-open grants full allowance")
}

func TestNopCounter_AlwaysAllows(t *testing.T) {
	limiter, _ := fixedLimiter(NopCounter{}, time.Unix(1_750_000_000, 0))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		result := limiter.Allow(ctx, "user-1", "enhance", 3, 60*time.Second)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Remaining)
	}
}

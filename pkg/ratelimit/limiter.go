package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidConfiguration is returned when a bucket is constructed with a
// non-positive capacity or refill interval.
var ErrInvalidConfiguration = errors.New("ratelimit: capacity and refill interval must be positive")

// Admitter gates outbound requests. TryAdmit consumes one token when
// available; AwaitAdmission blocks until the caller may retry.
type Admitter interface {
	TryAdmit() bool
	TimeUntilNextToken() time.Duration
	AwaitAdmission(ctx context.Context) error
}

// Opts allows tests to control time and sleeping.
type Opts struct {
	TimeProvider func() time.Time
	Sleep        func(ctx context.Context, d time.Duration) error
}

// TokenBucket is an in-memory token bucket. One token is consumed per
// admitted call; tokens regenerate at one per refill interval.
//
// Two deliberate policy quirks are preserved from the original client and
// must not be "fixed":
//
//   - Refill is lossy. Every refill computation advances the refill timestamp
//     to now even when no whole interval has elapsed, so sub-interval elapsed
//     time is forgotten rather than carried forward.
//   - AwaitAdmission resets the bucket to full capacity after its wait
//     instead of granting a single token, changing burst behavior after
//     congestion.
type TokenBucket struct {
	mu             sync.Mutex
	capacity       int
	refillInterval time.Duration
	tokens         int
	lastRefill     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a full bucket. capacity and refillInterval must be positive.
func New(capacity int, refillInterval time.Duration, opts *Opts) (*TokenBucket, error) {
	if capacity <= 0 || refillInterval <= 0 {
		return nil, ErrInvalidConfiguration
	}

	now := time.Now
	sleep := sleepContext
	if opts != nil && opts.TimeProvider != nil {
		now = opts.TimeProvider
	}
	if opts != nil && opts.Sleep != nil {
		sleep = opts.Sleep
	}

	return &TokenBucket{
		capacity:       capacity,
		refillInterval: refillInterval,
		tokens:         capacity,
		lastRefill:     now(),
		now:            now,
		sleep:          sleep,
	}, nil
}

// refillLocked recomputes available tokens from elapsed time. Callers must
// hold b.mu. The refill timestamp always advances to now (lossy refill).
func (b *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed < 0 {
		elapsed = 0
	}
	tokensToAdd := int(elapsed / b.refillInterval)
	b.tokens += tokensToAdd
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// TryAdmit refills, then consumes one token if available. It returns false
// without blocking when the bucket is empty.
func (b *TokenBucket) TryAdmit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(b.now())
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// TimeUntilNextToken returns zero when a token is available, otherwise the
// minimum wait before one regenerates. The result is always within
// [0, refillInterval].
func (b *TokenBucket) TimeUntilNextToken() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.refillLocked(now)
	if b.tokens > 0 {
		return 0
	}
	wait := b.refillInterval - now.Sub(b.lastRefill)
	if wait < 0 {
		wait = 0
	}
	return wait
}

// AwaitAdmission sleeps until the next token would be available, then resets
// the bucket to full capacity. Concurrent waiters share the same bucket
// state; no FIFO ordering is guaranteed between them.
func (b *TokenBucket) AwaitAdmission(ctx context.Context) error {
	if err := b.sleep(ctx, b.TimeUntilNextToken()); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.capacity
	b.lastRefill = b.now()
	return nil
}

// Tokens reports the currently available tokens without refilling.
func (b *TokenBucket) Tokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBucket shares one token bucket between processes through a redis
// counter. It implements Admitter so it can replace the in-memory bucket
// without touching the dispatcher.
//
// Unlike TokenBucket, regeneration is driven by a background ticker
// (StartRefill) rather than elapsed-time computation, so TimeUntilNextToken
// reports the full refill interval whenever the counter is exhausted.
type RedisBucket struct {
	client         redis.Cmdable
	key            string
	capacity       int
	refillInterval time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRedisBucket initializes the shared counter to full capacity when it does
// not exist yet. capacity and refillInterval must be positive.
func NewRedisBucket(ctx context.Context, client redis.Cmdable, key string, capacity int, refillInterval time.Duration) (*RedisBucket, error) {
	if capacity <= 0 || refillInterval <= 0 {
		return nil, ErrInvalidConfiguration
	}

	if err := client.SetNX(ctx, key, capacity, 0).Err(); err != nil {
		return nil, err
	}

	return &RedisBucket{
		client:         client,
		key:            key,
		capacity:       capacity,
		refillInterval: refillInterval,
		sleep:          sleepContext,
	}, nil
}

// TryAdmit decrements the shared counter. A negative result means another
// process won the race for the last token, so the decrement is compensated
// and admission is rejected.
func (b *RedisBucket) TryAdmit() bool {
	ctx := context.Background()
	remaining, err := b.client.DecrBy(ctx, b.key, 1).Result()
	if err != nil {
		// Fail open: an unreachable limiter store must not take the client down.
		return true
	}
	if remaining < 0 {
		b.client.IncrBy(ctx, b.key, 1)
		return false
	}
	return true
}

func (b *RedisBucket) TimeUntilNextToken() time.Duration {
	tokens, err := b.client.Get(context.Background(), b.key).Int64()
	if err != nil || tokens > 0 {
		return 0
	}
	return b.refillInterval
}

// AwaitAdmission sleeps one refill interval, then restores the shared counter
// to full capacity (same full-refill-after-wait policy as TokenBucket).
func (b *RedisBucket) AwaitAdmission(ctx context.Context) error {
	if err := b.sleep(ctx, b.TimeUntilNextToken()); err != nil {
		return err
	}
	return b.client.Set(ctx, b.key, b.capacity, 0).Err()
}

// StartRefill regenerates one token per interval until ctx is canceled.
// Exactly one process per key should run it.
func (b *RedisBucket) StartRefill(ctx context.Context) {
	ticker := time.NewTicker(b.refillInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tokens, err := b.client.IncrBy(ctx, b.key, 1).Result()
			if err != nil {
				continue
			}
			if tokens > int64(b.capacity) {
				b.client.DecrBy(ctx, b.key, 1)
			}
		}
	}
}

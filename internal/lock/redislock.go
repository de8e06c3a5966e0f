package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL          = 5 * time.Second
	defaultRetryBackoff = 25 * time.Millisecond
)

var (
	// ErrNotConfigured is returned when the locker has no redis client.
	ErrNotConfigured = errors.New("lock: redis client not configured")

	releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)
)

// RatingKey names the lock serialising rating updates of one item.
func RatingKey(itemID uuid.UUID) string {
	return fmt.Sprintf("lock:rating:%s", itemID)
}

// Locker provides a Redis-backed mutual exclusion keyed by string.
type Locker struct {
	R            redis.Cmdable
	TTL          time.Duration
	RetryBackoff time.Duration
}

// WithLock runs fn while holding key. The lock is released once fn returns,
// whatever its result. Acquisition keeps retrying until ctx is done.
func (l Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNotConfigured
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	token := uuid.NewString()
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	defer releaseScript.Run(context.WithoutCancel(ctx), l.R, []string{key}, token)
	return fn(ctx)
}

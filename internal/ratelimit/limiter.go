package ratelimit

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const defaultPrefix = "ratelimit"

// NewRedisLimiter builds a limiter whose counters live in redis. rate uses the
// "<limit>-<period>" format, e.g. "120-M".
func NewRedisLimiter(rdb *redis.Client, rate, prefix string) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", rate, err)
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis store: %w", err)
	}
	return limiter.New(store, parsed), nil
}

// NewMemoryLimiter builds a process-local limiter.
func NewMemoryLimiter(rate string) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", rate, err)
	}
	return limiter.New(memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: defaultPrefix}), parsed), nil
}

// Package ratelimit counts requests per client identifier.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidDriver = errors.New("ratelimit: invalid driver")
	ErrInvalidConfig = errors.New("ratelimit: invalid configuration")
)

// Driver selects the limiter implementation.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

// Limiter admits at most a fixed number of requests per key and window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Option configures a limiter.
type Option func(*limiterConfig)

type limiterConfig struct {
	redisClient redis.UniversalClient
	keyPrefix   string
	now         func() time.Time
}

// WithRedisClient sets the client used by the redis driver.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(c *limiterConfig) {
		c.redisClient = client
	}
}

// WithKeyPrefix namespaces redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(c *limiterConfig) {
		c.keyPrefix = prefix
	}
}

func withClock(now func() time.Time) Option {
	return func(c *limiterConfig) {
		c.now = now
	}
}

// New creates a limiter allowing maxRequests per window for each key.
// The redis driver requires WithRedisClient.
func New(driver Driver, window time.Duration, maxRequests int, opts ...Option) (Limiter, error) {
	if window <= 0 || maxRequests <= 0 {
		return nil, ErrInvalidConfig
	}

	cfg := &limiterConfig{keyPrefix: "supportdesk:ratelimit:", now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}

	switch driver {
	case DriverMemory, "":
		return newMemoryLimiter(window, maxRequests, cfg.now), nil
	case DriverRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisLimiter{
			client:      cfg.redisClient,
			prefix:      cfg.keyPrefix,
			window:      window,
			maxRequests: maxRequests,
			now:         cfg.now,
		}, nil
	default:
		return nil, ErrInvalidDriver
	}
}

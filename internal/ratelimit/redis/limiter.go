// Package redis implements a fixed-window request limiter backed by Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/medimentor/internal/observability"
)

const keyPrefix = "medimentor:ratelimit:"

// Config contains rate limiter settings. An empty Addr disables limiting.
type Config struct {
	Addr      string `env:"RATE_LIMIT_REDIS_ADDR"`
	Password  string `env:"RATE_LIMIT_REDIS_PASSWORD"`
	DB        int    `env:"RATE_LIMIT_REDIS_DB"        envDefault:"0"`
	PerMinute int    `env:"RATE_LIMIT_PER_MINUTE"      envDefault:"60"`
}

// Enabled reports whether a Redis address is configured.
func (c Config) Enabled() bool {
	return c.Addr != ""
}

// Limiter counts requests per key in fixed one-minute windows.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewLimiter creates a limiter using an existing client.
func NewLimiter(client *redis.Client, perMinute int) (*Limiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if perMinute <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", perMinute)
	}

	return &Limiter{
		client: client,
		limit:  int64(perMinute),
		window: time.Minute,
		now:    time.Now,
	}, nil
}

// NewClient opens a client for the configured address.
func NewClient(cfg Config) *redis.Client {
	//nolint:exhaustruct // remaining options use go-redis defaults
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Allow increments the counter of the current window for key.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := l.windowKey(key)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record request: %w", err)
	}

	allowed := count.Val() <= l.limit
	if !allowed {
		observability.FromContext(ctx).Debug("rate limit exceeded",
			observability.String("key", key),
			observability.Int64("count", count.Val()),
			observability.Int64("limit", l.limit),
		)
	}

	return allowed, nil
}

// Close releases the underlying connection pool.
func (l *Limiter) Close() error {
	return l.client.Close()
}

func (l *Limiter) windowKey(key string) string {
	bucket := l.now().Truncate(l.window).Unix()
	return fmt.Sprintf("%s%s:%d", keyPrefix, key, bucket)
}

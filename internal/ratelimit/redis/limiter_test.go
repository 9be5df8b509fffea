package redis //nolint:testpackage // Need access to unexported windowKey

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()

	//nolint:exhaustruct // test client
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestNewLimiter(t *testing.T) {
	t.Run("should reject nil client", func(t *testing.T) {
		_, err := NewLimiter(nil, 10)
		require.Error(t, err)
	})

	t.Run("should reject non-positive limit", func(t *testing.T) {
		_, err := NewLimiter(unreachableClient(t), 0)
		require.Error(t, err)
		require.Contains(t, err.Error(), "must be positive")
	})
}

func TestLimiter_Allow_UnreachableRedis(t *testing.T) {
	limiter, err := NewLimiter(unreachableClient(t), 10)
	require.NoError(t, err)

	allowed, err := limiter.Allow(context.Background(), "203.0.113.7")

	require.Error(t, err)
	require.False(t, allowed)
	require.Contains(t, err.Error(), "failed to record request")
}

func TestLimiter_WindowKey(t *testing.T) {
	limiter, err := NewLimiter(unreachableClient(t), 10)
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)

	limiter.now = func() time.Time { return base.Add(5 * time.Second) }
	first := limiter.windowKey("client")

	limiter.now = func() time.Time { return base.Add(59 * time.Second) }
	require.Equal(t, first, limiter.windowKey("client"), "same minute must share a window")

	limiter.now = func() time.Time { return base.Add(61 * time.Second) }
	require.NotEqual(t, first, limiter.windowKey("client"), "next minute must start a new window")

	require.Contains(t, first, "medimentor:ratelimit:client:")
}

func TestConfig_Enabled(t *testing.T) {
	require.False(t, Config{}.Enabled())
	require.True(t, Config{Addr: "localhost:6379"}.Enabled())
}

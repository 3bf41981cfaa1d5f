package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &NoOpRateLimiter{}
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
	}{
		{name: "Any key should be allowed", key: "10.0.0.1"},
		{name: "Empty key", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				allowed, err := limiter.Allow(ctx, tt.key)
				require.NoError(t, err)
				assert.True(t, allowed)
			}
		})
	}
	assert.NoError(t, limiter.Close())
}

func TestNewRedisRateLimiter_InvalidArgs(t *testing.T) {
	_, err := NewRedisRateLimiter("not-a-valid-url", 100, time.Minute)
	assert.Error(t, err)

	_, err = NewRedisRateLimiter("redis://localhost:6379", 0, time.Minute)
	assert.Error(t, err)

	_, err = NewRedisRateLimiter("redis://localhost:6379", 10, 0)
	assert.Error(t, err)
}

func TestNewRedisRateLimiter_ConnectionFailed(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisRateLimiter("redis://"+addr, 100, time.Minute)
	assert.Error(t, err)
}

func TestRedisRateLimiter_Limit(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr(), 5, time.Minute)
	require.NoError(t, err)
	defer limiter.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed, "6th request should be limited")

	assert.True(t, mr.Exists(keyPrefix+"10.0.0.1"))
	assert.Greater(t, mr.TTL(keyPrefix+"10.0.0.1"), time.Duration(0))
}

func TestRedisRateLimiter_DifferentKeys(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr(), 2, time.Minute)
	require.NoError(t, err)
	defer limiter.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "key-1")
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.Allow(ctx, "key-2")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, _ := limiter.Allow(ctx, "key-1")
	assert.False(t, allowed)
	allowed, _ = limiter.Allow(ctx, "key-2")
	assert.False(t, allowed)
}

func TestRedisRateLimiter_SlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	limiter := newRedisRateLimiter(client, 3, 2*time.Second, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, allowed)

	// still inside the window
	now = now.Add(1500 * time.Millisecond)
	allowed, _ = limiter.Allow(ctx, "ip")
	assert.False(t, allowed)

	// the first three entries have slid out
	now = now.Add(time.Second)
	allowed, _ = limiter.Allow(ctx, "ip")
	assert.True(t, allowed)
}

func TestRedisRateLimiter_SameInstantRequests(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newRedisRateLimiter(client, 3, time.Minute, func() time.Time { return fixed })
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := limiter.Allow(ctx, "burst")
			if err != nil {
				t.Errorf("Allow() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, allowed)
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr(), 5, time.Minute)
	require.NoError(t, err)
	defer limiter.Close()

	mr.Close()

	_, err = limiter.Allow(context.Background(), "ip")
	assert.Error(t, err)
}

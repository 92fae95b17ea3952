package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledWithoutRedis(t *testing.T) {
	limiter := NewAPILimiter(nil, config.Config{RateLimitRate: 1, RateLimitBurst: 1})
	assert.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	locker := NewLocker(nil)
	assert.False(t, locker.Enabled())
	lease, err := locker.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.Nil(t, lease)
	assert.NoError(t, lease.Release(context.Background()))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, retryAfter(0.5, 1))
	assert.Equal(t, time.Duration(0), retryAfter(1, 1))
	assert.Equal(t, 100*time.Millisecond, retryAfter(0, 10))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 8*time.Second, bucketTTL(10, 40))
	assert.Equal(t, time.Second, bucketTTL(1000, 1))
}

func TestScriptValueParsing(t *testing.T) {
	assert.Equal(t, int64(1), toInt(int64(1)))
	assert.Equal(t, int64(0), toInt(nil))
	assert.InDelta(t, 3.25, toFloat("3.25"), 1e-9)
	assert.InDelta(t, 2.0, toFloat(int64(2)), 1e-9)
}

// Package ratelimit holds the Redis backed primitives shared by the API and the
// scheduler: a per client token bucket and a lease lock.
package ratelimit

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/kinesio/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyAPIClient = "kinesio:ratelimit:api:%s"

// NewRedisClient returns nil when REDIS_ADDR is empty; callers treat a nil client
// as "feature disabled".
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, rate limiting and job locks disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

// APILimiter throttles API callers by client key.
type APILimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewAPILimiter(client *redis.Client, cfg config.Config) *APILimiter {
	if client == nil || cfg.RateLimitRate <= 0 || cfg.RateLimitBurst <= 0 {
		return nil
	}
	return &APILimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimitRate,
		burst:  cfg.RateLimitBurst,
	}
}

func (l *APILimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *APILimiter) Allow(ctx context.Context, clientKey string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAPIClient, clientKey), l.rate, l.burst)
}

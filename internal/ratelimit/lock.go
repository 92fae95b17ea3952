package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds the caller's token.
const releaseLeaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockNotConfigured = errors.New("lock client not configured")
	ErrInvalidLease      = errors.New("lease key and ttl are required")
)

// Locker hands out exclusive leases on Redis keys so that a single replica runs
// each scheduled job.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

// Lease is held until Release or until its TTL runs out.
type Lease struct {
	Key   string
	token string
	owner *Locker
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseLeaseScript),
	}
}

func (l *Locker) Enabled() bool {
	return l != nil && l.client != nil
}

// Acquire returns a nil lease without error when another holder owns key.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if !l.Enabled() {
		return nil, ErrLockNotConfigured
	}
	if key == "" || ttl <= 0 {
		return nil, ErrInvalidLease
	}

	lease := &Lease{Key: key, token: uuid.NewString(), owner: l}
	acquired, err := l.client.SetNX(ctx, key, lease.token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, nil
	}
	return lease, nil
}

// Release gives the lease up. A lease that already expired and was taken by
// someone else is left alone.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || !l.owner.Enabled() {
		return nil
	}
	return l.owner.release.Run(ctx, l.owner.client, []string{l.Key}, l.token).Err()
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gardusio/coach-client/internal/model"
)

// releaseScript deletes the lock only when it still holds the caller's owner id.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client      *redis.Client
	ttlDuration time.Duration
	now         func() time.Time
}

// NewRedisLocker creates a RedisLocker. A non-positive ttl selects DefaultTTL.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, ttlDuration: ttl, now: time.Now}
}

func lockKey(sessionID string) string {
	return "coach:refresh_lock:" + sessionID
}

func (r *RedisLocker) AcquireLock(ctx context.Context, sessionID, owner string) (*model.RefreshLock, error) {
	key := lockKey(sessionID)

	ok, err := r.client.SetNX(ctx, key, owner, r.ttlDuration).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		holder, err := r.client.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to read lock: %w", err)
		}
		if holder != owner {
			return nil, ErrLocked
		}
		// re-entrant acquire extends the lease
		if err := r.client.PExpire(ctx, key, r.ttlDuration).Err(); err != nil {
			return nil, fmt.Errorf("failed to extend lock: %w", err)
		}
	}

	return &model.RefreshLock{
		SessionID: sessionID,
		Owner:     owner,
		ExpiresAt: r.now().Add(r.ttlDuration).Unix(),
	}, nil
}

func (r *RedisLocker) ReleaseLock(ctx context.Context, sessionID, owner string) error {
	n, err := releaseScript.Run(ctx, r.client, []string{lockKey(sessionID)}, owner).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n == 0 {
		return ErrNotOwner
	}
	return nil
}

package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:"

// releaseScript drops the lease only when still owned by the caller. A
// positive ARGV[2] shortens the TTL to the remaining minimum hold instead.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	if tonumber(ARGV[2]) > 0 then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return redis.call("DEL", KEYS[1])
end
return 0`

// Client is the subset of go-redis the locker needs.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Lease is a held named lock.
type Lease interface {
	Release(ctx context.Context) error
}

// RedisLocker grants named leases across service instances. maxHold is the
// key TTL, so a crashed holder frees the lease after at most maxHold.
// minHold keeps the lease after an early release so that instances with
// skewed clocks do not rerun the same job.
type RedisLocker struct {
	client Client
	now    func() time.Time
}

func NewRedisLocker(client Client) *RedisLocker {
	return &RedisLocker{client: client, now: time.Now}
}

// TryAcquire returns ok=false without error when another owner holds name.
func (l *RedisLocker) TryAcquire(ctx context.Context, name string, minHold, maxHold time.Duration) (Lease, bool, error) {
	if maxHold <= 0 {
		return nil, false, fmt.Errorf("lock %s: max hold must be positive", name)
	}
	if minHold > maxHold {
		minHold = maxHold
	}
	owner := uuid.NewString()
	key := keyPrefix + name

	ok, err := l.client.SetNX(ctx, key, owner, maxHold).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{
		locker:   l,
		key:      key,
		owner:    owner,
		acquired: l.now(),
		minHold:  minHold,
	}, true, nil
}

type redisLease struct {
	locker   *RedisLocker
	key      string
	owner    string
	acquired time.Time
	minHold  time.Duration
}

func (r *redisLease) Release(ctx context.Context) error {
	remaining := r.minHold - r.locker.now().Sub(r.acquired)
	ms := int64(0)
	if remaining > 0 {
		ms = remaining.Milliseconds()
		if ms == 0 {
			ms = 1
		}
	}
	if err := r.locker.client.Eval(ctx, releaseScript, []string{r.key}, r.owner, ms).Err(); err != nil {
		return fmt.Errorf("release %s: %w", r.key, err)
	}
	return nil
}

package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// incrWindow increments KEYS[1] and starts its expiry on the first hit of
// a window, atomically.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Redis is a fixed-window Counter shared by every instance pointing at the
// same Redis server.
type Redis struct {
	rdb      redis.UniversalClient
	prefix   string
	limit    int64
	duration time.Duration
}

var _ Counter = (*Redis)(nil)

// NewRedis returns a Counter allowing limit hits per duration. Keys are
// namespaced with prefix.
func NewRedis(rdb redis.UniversalClient, prefix string, limit int, duration time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, limit: int64(limit), duration: duration}
}

// Allow records a hit and reports whether it is within the limit.
func (c *Redis) Allow(ctx context.Context, key string) (bool, error) {
	n, err := incrWindow.Run(ctx, c.rdb, []string{c.prefix + key}, c.duration.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= c.limit, nil
}

// Reset clears the count for key.
func (c *Redis) Reset(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}

// NewRedisLoginLimiter builds a LoginLimiter backed by Redis with the same
// windows as NewMemoryLoginLimiter.
func NewRedisLoginLimiter(rdb redis.UniversalClient, ipLimit int, logger *zap.Logger) *LoginLimiter {
	if ipLimit <= 0 {
		ipLimit = 10
	}
	return NewLoginLimiter(
		NewRedis(rdb, "meraki:rl:", ipLimit, time.Minute),
		NewRedis(rdb, "meraki:rl:", 5, 5*time.Minute),
		logger,
	)
}

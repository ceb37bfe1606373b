package calls

import (
	"context"
	"time"

	"voice-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Limiter caps in-flight calls per tenant.
type Limiter interface {
	Acquire(ctx context.Context, tenantID string) (bool, error)
	Release(ctx context.Context, tenantID string) error
}

// RedisLimiter counts slots in redis so the cap holds across API replicas.
// The key TTL reclaims slots whose hangup never arrived.
type RedisLimiter struct {
	rdb   redis.Scripter
	limit int
	ttl   time.Duration
}

// NewRedisLimiter returns a limiter; a non-positive limit disables the cap.
func NewRedisLimiter(rdb redis.Scripter, limit int, ttl time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func InflightKey(tenantID string) string { return "calls:inflight:" + tenantID }

func (l *RedisLimiter) Enabled() bool { return l != nil && l.limit > 0 && l.rdb != nil }

func (l *RedisLimiter) Acquire(ctx context.Context, tenantID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return utils.AcquireConcurrencyCap(ctx, l.rdb, InflightKey(tenantID), l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, tenantID string) error {
	if !l.Enabled() {
		return nil
	}
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, InflightKey(tenantID))
}

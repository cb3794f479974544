package calls

import (
	"context"
	"time"

	"healthline-api/internal/audit"
	"healthline-api/internal/config"
	"healthline-api/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed bool
	// Count is the number of calls seen in the window before this one.
	Count int
}

// Limiter throttles call placement per caller IP and destination number.
//
// Callers must treat a non-nil error as "allow": availability wins over
// enforcement when the lookup itself fails.
type Limiter interface {
	Allow(ctx context.Context, ip, number string) (Decision, error)
}

// StoreLimiter counts recent audit records matching the IP or the number.
//
// Known gap: the count and the later audit insert are separate operations,
// so concurrent requests can all pass before any of their records are
// visible. The limit is advisory. Use RedisLimiter for a hard cap.
type StoreLimiter struct {
	repo   audit.Repository
	max    int
	window time.Duration
	clock  func() time.Time
}

func NewStoreLimiter(repo audit.Repository, cfg config.RateLimitConfig) *StoreLimiter {
	return &StoreLimiter{repo: repo, max: cfg.Max, window: cfg.Window, clock: time.Now}
}

func (l *StoreLimiter) Allow(ctx context.Context, ip, number string) (Decision, error) {
	n, err := l.repo.CountRecent(ctx, ip, number, l.clock().UTC().Add(-l.window))
	if err != nil {
		return Decision{Allowed: true}, err
	}
	return Decision{Allowed: n < l.max, Count: n}, nil
}

// RedisLimiter keeps fixed-window counters in Redis, one per IP and one per
// number. Increment and compare are atomic, so the limit is a hard cap.
// Slots are taken when the check passes, before the provider is called.
type RedisLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, cfg config.RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, max: cfg.Max, window: cfg.Window, prefix: "ratelimit:emergency_call:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, ip, number string) (Decision, error) {
	ipKey := ""
	if ip != "" {
		ipKey = l.prefix + "ip:" + ip
		ok, n, err := utils.AcquireWindowSlot(ctx, l.rdb, ipKey, l.max, l.window)
		if err != nil {
			return Decision{Allowed: true}, err
		}
		if !ok {
			return Decision{Allowed: false, Count: n}, nil
		}
	}

	ok, n, err := utils.AcquireWindowSlot(ctx, l.rdb, l.prefix+"to:"+number, l.max, l.window)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	if !ok {
		if ipKey != "" {
			// The call is not placed, so the IP slot goes back.
			_ = utils.ReleaseWindowSlot(ctx, l.rdb, ipKey)
		}
		return Decision{Allowed: false, Count: n}, nil
	}
	return Decision{Allowed: true, Count: n - 1}, nil
}

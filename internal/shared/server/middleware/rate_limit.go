package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"slidebanai-backend/internal/shared/server/respond"
	"slidebanai-backend/internal/shared/telemetry"
	"slidebanai-backend/internal/shared/util"
)

const (
	RateLimitGroupDefault    = "DEFAULT"
	RateLimitGroupGeneration = "GENERATION"

	limiterIdleTTL = 10 * time.Minute
	redisWindow    = time.Minute
)

// RateLimitRule allows PerMinute requests on average with bursts up to Burst.
type RateLimitRule struct {
	PerMinute int
	Burst     int
}

func (r RateLimitRule) disabled() bool {
	return r.PerMinute <= 0 || r.Burst <= 0
}

// RateLimitBackend decides whether one more request under key is allowed.
type RateLimitBackend interface {
	Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration, error)
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Backend      RateLimitBackend
}

// RateLimit enforces per-principal limits. The principal is the user id, or the client
// IP for unauthenticated routes. Backend errors fail open.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Backend == nil {
		cfg.Backend = NewMemoryLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = RateLimitGroupDefault
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok || rule.disabled() {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = strings.TrimSpace(c.ClientIP())
		}
		key := principal + "|" + group

		allowed, retryAfter, err := cfg.Backend.Allow(c.Request.Context(), key, rule)
		if err != nil {
			telemetry.Warn("ratelimit.backend_error", map[string]any{
				"group":      group,
				"error":      err.Error(),
				"request_id": RequestIDFromContext(c),
			})
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}

		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, http.StatusTooManyRequests, respond.CodeRateLimited, "Too many requests", gin.H{
			"group":        group,
			"retryAfterMs": retryAfterMs,
		})
	}
}

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	now       func() time.Time
	lastSweep time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		limiters: make(map[string]*limiterEntry),
		now:      now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, rule RateLimitRule) (bool, time.Duration, error) {
	if rule.disabled() {
		return true, 0, nil
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	entry, ok := l.limiters[key]
	if !ok {
		every := time.Minute / time.Duration(rule.PerMinute)
		entry = &limiterEntry{lim: rate.NewLimiter(rate.Every(every), rule.Burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	res := entry.lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// sweep drops limiters idle for longer than limiterIdleTTL. Caller holds mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < limiterIdleTTL {
		return
	}
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// RedisLimiter counts requests in fixed one-minute windows shared by every instance.
type RedisLimiter struct {
	Client redis.Cmdable
	Prefix string
}

func NewRedisLimiter(client redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{Client: client, Prefix: "slidebanai:ratelimit:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration, error) {
	if rule.disabled() {
		return true, 0, nil
	}
	principal, group, _ := strings.Cut(key, "|")
	redisKey := l.Prefix + group + ":" + util.HashUserKey(principal)

	count, err := l.Client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := l.Client.PExpire(ctx, redisKey, redisWindow).Err(); err != nil {
			return false, 0, err
		}
	}
	if count <= int64(rule.PerMinute) {
		return true, 0, nil
	}
	ttl, err := l.Client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl <= 0 {
		ttl = redisWindow
	}
	return false, ttl, nil
}

var (
	_ RateLimitBackend = (*MemoryLimiter)(nil)
	_ RateLimitBackend = (*RedisLimiter)(nil)
)

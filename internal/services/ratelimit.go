package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stackgenie/stackgenie-backend/internal/observability"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

// RateLimiter is a fixed-window counter keyed by caller.
type RateLimiter interface {
	// Allow records one hit for key. When the window is exhausted it returns
	// false and how long until the window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type RateLimitConfig struct {
	Name   string
	Limit  int
	Window time.Duration
}

type rateLimiter struct {
	log     *logger.Logger
	cfg     RateLimitConfig
	rdb     *redis.Client
	metrics *observability.Metrics

	mu      sync.Mutex
	windows map[string]*memWindow
	now     func() time.Time
}

type memWindow struct {
	count int
	reset time.Time
}

// NewRateLimiter counts in Redis when rdb is set and falls back to process
// memory when it is nil or unreachable.
func NewRateLimiter(log *logger.Logger, rdb *redis.Client, cfg RateLimitConfig, metrics *observability.Metrics) RateLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 2
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	return &rateLimiter{
		log:     log.With("service", "RateLimiter", "limiter", cfg.Name),
		cfg:     cfg,
		rdb:     rdb,
		metrics: metrics,
		windows: map[string]*memWindow{},
		now:     time.Now,
	}
}

func (rl *rateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	var (
		allowed bool
		wait    time.Duration
		err     error
	)
	if rl.rdb != nil {
		allowed, wait, err = rl.allowRedis(ctx, key)
		if err != nil {
			rl.log.Warn("Redis rate limit failed, using memory window", "error", err)
			allowed, wait = rl.allowMemory(key)
		}
	} else {
		allowed, wait = rl.allowMemory(key)
	}
	if !allowed {
		rl.metrics.IncRateLimited(rl.cfg.Name)
	}
	return allowed, wait, nil
}

func (rl *rateLimiter) allowRedis(ctx context.Context, key string) (bool, time.Duration, error) {
	rkey := fmt.Sprintf("ratelimit:%s:%s", rl.cfg.Name, key)
	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	pipe.ExpireNX(ctx, rkey, rl.cfg.Window)
	ttl := pipe.PTTL(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	wait := ttl.Val()
	if wait < 0 {
		wait = rl.cfg.Window
	}
	if incr.Val() > int64(rl.cfg.Limit) {
		return false, wait, nil
	}
	return true, 0, nil
}

func (rl *rateLimiter) allowMemory(key string) (bool, time.Duration) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &memWindow{reset: now.Add(rl.cfg.Window)}
		rl.windows[key] = w
		rl.gcLocked(now)
	}
	w.count++
	if w.count > rl.cfg.Limit {
		return false, w.reset.Sub(now)
	}
	return true, 0
}

func (rl *rateLimiter) gcLocked(now time.Time) {
	if len(rl.windows) < 1024 {
		return
	}
	for k, w := range rl.windows {
		if !now.Before(w.reset) {
			delete(rl.windows, k)
		}
	}
}

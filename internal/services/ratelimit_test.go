package services

import (
	"context"
	"testing"
	"time"

	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

func TestRateLimiterMemoryWindow(t *testing.T) {
	rl := NewRateLimiter(logger.Nop(), nil, RateLimitConfig{Name: "generate", Limit: 2, Window: time.Minute}, nil).(*rateLimiter)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := rl.Allow(ctx, "user-a")
		if err != nil || !ok {
			t.Fatalf("Allow #%d: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, wait, err := rl.Allow(ctx, "user-a")
	if err != nil || ok {
		t.Fatalf("Allow #3: ok=%v err=%v", ok, err)
	}
	if wait != time.Minute {
		t.Fatalf("Allow #3: wait=%s want 1m", wait)
	}

	if ok, _, _ := rl.Allow(ctx, "user-b"); !ok {
		t.Fatalf("Allow: keys share a window")
	}

	now = now.Add(time.Minute)
	if ok, _, _ := rl.Allow(ctx, "user-a"); !ok {
		t.Fatalf("Allow: window did not reset")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(logger.Nop(), nil, RateLimitConfig{}, nil).(*rateLimiter)
	if rl.cfg.Limit != 2 || rl.cfg.Window != time.Minute || rl.cfg.Name != "default" {
		t.Fatalf("defaults: %+v", rl.cfg)
	}
}

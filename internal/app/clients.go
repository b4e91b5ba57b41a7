package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/platform/openai"
	"github.com/stackgenie/stackgenie-backend/internal/platform/redis"
)

type Clients struct {
	Redis  *goredis.Client
	OpenAI openai.Client
}

// wireClients connects optional upstreams. A missing OpenAI key leaves
// generation disabled; an unreachable Redis falls back to in-process limits.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	rdb, err := redis.NewClient(ctx, log, redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		log.Warn("Redis unavailable, rate limits are per process", "error", err)
	}
	out.Redis = rdb

	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		log.Warn("OPENAI_API_KEY not set, project generation is disabled")
		return out, nil
	}
	ai, err := openai.NewClient(log, cfg.OpenAI)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	out.OpenAI = ai
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

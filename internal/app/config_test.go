package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ACCESS_TOKEN_TTL", "60")
	t.Setenv("AI_RATE_LIMIT", "5")
	t.Setenv("CANVAS_ALLOW_SELF_LOOPS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("DEPLOY_STEP_DELAY", "250ms")

	cfg := LoadConfig(logger.Nop())
	if cfg.Port != "9090" || cfg.DB.Driver != "sqlite" {
		t.Fatalf("port=%q driver=%q", cfg.Port, cfg.DB.Driver)
	}
	if cfg.AccessTokenTTL != time.Minute || cfg.AIRateLimit != 5 || !cfg.AllowSelfLoops {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example.com" {
		t.Fatalf("origins=%v", cfg.CORSOrigins)
	}
	if cfg.DeployStepDelay != 250*time.Millisecond {
		t.Fatalf("step delay=%v", cfg.DeployStepDelay)
	}
}

func TestLoadRegistryExtendsPalette(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	if err := os.WriteFile(path, []byte("types:\n  - name: Badge\n    defaultText: New\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg, err := LoadRegistry(logger.Nop(), path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if _, ok := reg.Lookup("Badge"); !ok {
		t.Fatalf("Badge not registered")
	}
	if _, ok := reg.Lookup("Button"); !ok {
		t.Fatalf("built-in types lost")
	}
	if _, err := LoadRegistry(logger.Nop(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("LoadRegistry: missing file accepted")
	}
}

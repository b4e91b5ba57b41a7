package app

import (
	"strings"
	"time"

	"github.com/stackgenie/stackgenie-backend/internal/db"
	"github.com/stackgenie/stackgenie-backend/internal/platform/envutil"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/platform/openai"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	Port        string
	ServiceName string
	Environment string
	CORSOrigins []string

	DB db.Config

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AIRateLimit  int
	AIRateWindow time.Duration
	OpenAI       openai.Config

	ComponentTypesFile string
	AllowSelfLoops     bool

	WebhookTimeout time.Duration

	DeployStepDelay   time.Duration
	DeployStepRetries int

	MetricsEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "stackgenie-api"),
		Environment: envutil.String("APP_ENV", "development"),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "stackgenie"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "stackgenie.db"),
			MaxOpenConns:     envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     envutil.Int("DB_MAX_IDLE_CONNS", 5),
		},

		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		AccessTokenTTL:  envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: envutil.Seconds("REFRESH_TOKEN_TTL", 24*time.Hour),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),

		AIRateLimit:  envutil.Int("AI_RATE_LIMIT", 2),
		AIRateWindow: envutil.Seconds("AI_RATE_WINDOW_SECONDS", time.Minute),
		OpenAI:       openai.ConfigFromEnv(),

		ComponentTypesFile: envutil.String("COMPONENT_TYPES_FILE", ""),
		AllowSelfLoops:     envutil.Bool("CANVAS_ALLOW_SELF_LOOPS", false),

		WebhookTimeout: envutil.Seconds("WEBHOOK_TIMEOUT_SECONDS", 10*time.Second),

		DeployStepDelay:   envutil.Duration("DEPLOY_STEP_DELAY", 2*time.Second),
		DeployStepRetries: envutil.Int("DEPLOY_STEP_RETRIES", 3),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", false),
	}
	if cfg.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY not set, using the development default")
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

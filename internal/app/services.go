package app

import (
	"fmt"
	"net/http"
	"os"

	"gorm.io/gorm"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
	"github.com/stackgenie/stackgenie-backend/internal/observability"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	Projects    services.ProjectService
	Canvas      services.CanvasService
	Generation  services.GenerationService
	Schema      services.SchemaService
	Library     services.LibraryService
	Webhooks    services.WebhookService
	Deployments services.DeploymentService

	GenerateLimiter services.RateLimiter
	Registry        *canvas.Registry
}

// LoadRegistry returns the built-in palette, extended from path when set.
func LoadRegistry(log *logger.Logger, path string) (*canvas.Registry, error) {
	reg := canvas.DefaultRegistry()
	if path == "" {
		return reg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open component types: %w", err)
	}
	defer f.Close()
	n, err := canvas.LoadRegistryYAML(reg, f)
	if err != nil {
		return nil, fmt.Errorf("load component types %s: %w", path, err)
	}
	log.Info("Loaded palette types", "file", path, "count", n)
	return reg, nil
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	registry, err := LoadRegistry(log, cfg.ComponentTypesFile)
	if err != nil {
		return Services{}, err
	}
	canvasCfg := services.CanvasConfig{
		Registry: registry,
		Policy:   canvas.Policy{AllowSelfLoops: cfg.AllowSelfLoops},
	}

	// Webhooks come first: they are the event sink for projects and deployments.
	webhooks := services.NewWebhookService(log, r.Webhook, &http.Client{Timeout: cfg.WebhookTimeout}, metrics)

	auth := services.NewAuthService(db, log, r.User, r.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	projects := services.NewProjectService(db, log, r.Project, r.User, canvasCfg, webhooks, metrics)
	deployments := services.NewDeploymentService(
		log,
		r.Deployment,
		projects,
		webhooks,
		services.NewSimulatedProvisioner(cfg.DeployStepDelay),
		services.DeploymentConfig{StepDelay: cfg.DeployStepDelay, StepRetries: cfg.DeployStepRetries},
		metrics,
	)

	return Services{
		Auth:        auth,
		Projects:    projects,
		Canvas:      services.NewCanvasService(log, projects, registry),
		Generation:  services.NewGenerationService(log, clients.OpenAI, projects, canvasCfg, metrics),
		Schema:      services.NewSchemaService(log, r.Schema, projects),
		Library:     services.NewLibraryService(log, r.Library, registry),
		Webhooks:    webhooks,
		Deployments: deployments,
		GenerateLimiter: services.NewRateLimiter(log, clients.Redis, services.RateLimitConfig{
			Name:   "generate",
			Limit:  cfg.AIRateLimit,
			Window: cfg.AIRateWindow,
		}, metrics),
		Registry: registry,
	}, nil
}

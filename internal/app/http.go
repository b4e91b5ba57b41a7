package app

import (
	"gorm.io/gorm"

	"github.com/stackgenie/stackgenie-backend/internal/http"
	httpH "github.com/stackgenie/stackgenie-backend/internal/http/handlers"
	httpMW "github.com/stackgenie/stackgenie-backend/internal/http/middleware"
	"github.com/stackgenie/stackgenie-backend/internal/observability"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Auth       *httpH.AuthHandler
	User       *httpH.UserHandler
	Project    *httpH.ProjectHandler
	Canvas     *httpH.CanvasHandler
	Schema     *httpH.SchemaHandler
	Library    *httpH.LibraryHandler
	Webhook    *httpH.WebhookHandler
	Deployment *httpH.DeploymentHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Auth:       httpH.NewAuthHandler(log, services.Auth),
		User:       httpH.NewUserHandler(log, services.Auth),
		Project:    httpH.NewProjectHandler(log, services.Projects, services.Generation),
		Canvas:     httpH.NewCanvasHandler(log, services.Canvas),
		Schema:     httpH.NewSchemaHandler(log, services.Schema),
		Library:    httpH.NewLibraryHandler(log, services.Library),
		Webhook:    httpH.NewWebhookHandler(log, services.Webhooks),
		Deployment: httpH.NewDeploymentHandler(log, services.Deployments),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, services Services, metrics *observability.Metrics, tracing bool) *http.Server {
	rc := http.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		CORSOrigins:       cfg.CORSOrigins,
		HealthHandler:     handlers.Health,
		AuthHandler:       handlers.Auth,
		AuthMiddleware:    middleware.Auth,
		UserHandler:       handlers.User,
		ProjectHandler:    handlers.Project,
		CanvasHandler:     handlers.Canvas,
		SchemaHandler:     handlers.Schema,
		LibraryHandler:    handlers.Library,
		WebhookHandler:    handlers.Webhook,
		DeploymentHandler: handlers.Deployment,
		GenerateLimiter:   services.GenerateLimiter,
	}
	if tracing {
		rc.ServiceName = cfg.ServiceName
	}
	return http.NewServer(rc)
}

package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/stackgenie/stackgenie-backend/internal/http/handlers"
	httpMW "github.com/stackgenie/stackgenie-backend/internal/http/middleware"
	"github.com/stackgenie/stackgenie-backend/internal/observability"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/services"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string // enables otelgin spans when set
	CORSOrigins []string

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	UserHandler    *httpH.UserHandler

	ProjectHandler    *httpH.ProjectHandler
	CanvasHandler     *httpH.CanvasHandler
	SchemaHandler     *httpH.SchemaHandler
	LibraryHandler    *httpH.LibraryHandler
	WebhookHandler    *httpH.WebhookHandler
	DeploymentHandler *httpH.DeploymentHandler

	// GenerateLimiter throttles POST /api/projects/generate per caller.
	GenerateLimiter services.RateLimiter

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")

	// Auth (public)
	if cfg.AuthHandler != nil {
		auth := api.Group("/auth")
		auth.POST("/register", cfg.AuthHandler.Register)
		auth.POST("/login", cfg.AuthHandler.Login)
		auth.POST("/refresh", cfg.AuthHandler.Refresh)
		auth.POST("/forgot-password", cfg.AuthHandler.ForgotPassword)
		auth.POST("/reset-password/:token", cfg.AuthHandler.ResetPassword)
	}

	protected := api.Group("")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Auth (protected)
	if cfg.AuthHandler != nil {
		protected.POST("/auth/logout", cfg.AuthHandler.Logout)
		protected.PUT("/auth/change-password", cfg.AuthHandler.ChangePassword)
	}
	if cfg.UserHandler != nil {
		protected.GET("/auth/profile", cfg.UserHandler.GetProfile)
		protected.PUT("/auth/profile", cfg.UserHandler.UpdateProfile)
	}

	// Projects
	if cfg.ProjectHandler != nil {
		protected.POST("/projects/generate", httpMW.RateLimit(log, cfg.GenerateLimiter), cfg.ProjectHandler.Generate)
		protected.POST("/projects", cfg.ProjectHandler.Create)
		protected.GET("/projects", cfg.ProjectHandler.List)
		protected.GET("/projects/:projectId", cfg.ProjectHandler.Get)
		protected.PUT("/projects/:projectId", cfg.ProjectHandler.Save)
		protected.DELETE("/projects/:projectId", cfg.ProjectHandler.Delete)
	}

	// Canvas
	if cfg.CanvasHandler != nil {
		protected.GET("/component-types", cfg.CanvasHandler.ComponentTypes)
		p := protected.Group("/projects/:projectId")
		p.POST("/components", cfg.CanvasHandler.AddComponent)
		p.PATCH("/components/:componentId", cfg.CanvasHandler.UpdateComponent)
		p.DELETE("/components/:componentId", cfg.CanvasHandler.RemoveComponent)
		p.POST("/components/:componentId/move", cfg.CanvasHandler.MoveComponent)
		p.POST("/components/:componentId/duplicate", cfg.CanvasHandler.DuplicateComponent)
		p.GET("/components/:componentId/points", cfg.CanvasHandler.Points)
		p.POST("/connections", cfg.CanvasHandler.Connect)
		p.DELETE("/connections/:connectionId", cfg.CanvasHandler.Disconnect)
		p.GET("/validate", cfg.CanvasHandler.Validate)
		p.GET("/code", cfg.CanvasHandler.Code)
	}

	// Schema designer
	if cfg.SchemaHandler != nil {
		s := protected.Group("/projects/:projectId/schema")
		s.GET("", cfg.SchemaHandler.Get)
		s.PUT("", cfg.SchemaHandler.Upsert)
		s.POST("/tables", cfg.SchemaHandler.AddTable)
		s.PUT("/tables/:tableName", cfg.SchemaHandler.UpdateTable)
		s.DELETE("/tables/:tableName", cfg.SchemaHandler.DeleteTable)
		s.POST("/relationships", cfg.SchemaHandler.AddRelationship)
		s.DELETE("/relationships", cfg.SchemaHandler.DeleteRelationship)
		s.GET("/prisma", cfg.SchemaHandler.Prisma)
	}

	// Component library
	if cfg.LibraryHandler != nil {
		protected.POST("/components", cfg.LibraryHandler.Create)
		protected.GET("/components", cfg.LibraryHandler.List)
		protected.GET("/components/:id", cfg.LibraryHandler.Get)
		protected.PUT("/components/:id", cfg.LibraryHandler.Update)
		protected.DELETE("/components/:id", cfg.LibraryHandler.Delete)
	}

	// Webhooks
	if cfg.WebhookHandler != nil {
		protected.POST("/webhooks/register", cfg.WebhookHandler.Register)
		protected.GET("/webhooks/list", cfg.WebhookHandler.List)
		protected.PUT("/webhooks/:id", cfg.WebhookHandler.Update)
		protected.DELETE("/webhooks/:id", cfg.WebhookHandler.Delete)
		protected.POST("/webhooks/test/:id", cfg.WebhookHandler.Test)
	}

	// Deployments
	if cfg.DeploymentHandler != nil {
		protected.POST("/deployments", cfg.DeploymentHandler.Create)
		protected.GET("/deployments/project/:projectId", cfg.DeploymentHandler.ListByProject)
		protected.GET("/deployments/:deploymentId/status", cfg.DeploymentHandler.Status)
		protected.GET("/deployments/:deploymentId/logs", cfg.DeploymentHandler.Logs)
		protected.POST("/deployments/:deploymentId/cancel", cfg.DeploymentHandler.Cancel)
	}

	return r
}

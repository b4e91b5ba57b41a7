package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/observability"
	"github.com/stackgenie/stackgenie-backend/internal/platform/apierr"
	"github.com/stackgenie/stackgenie-backend/internal/platform/httpx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/platform/openai"
)

const generationSystemPrompt = `You are an expert full-stack web application architect. Your task is to:
1. Analyze the user's project requirements
2. Break down the project into components
3. Generate a detailed project structure with components
4. Provide code snippets for key components

Return one JSON object with projectName, description and components. Each component has a type
(for example "frontend", "backend", "database", or a UI element such as "Button" or "Card"),
props {name, description, technology, dependencies} and code (implementation code or schema).`

var generationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"projectName": map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"components": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{"type": "string"},
					"props": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":         map[string]any{"type": "string"},
							"description":  map[string]any{"type": "string"},
							"technology":   map[string]any{"type": "string"},
							"dependencies": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						},
					},
					"code": map[string]any{"type": "string"},
				},
				"required": []string{"type"},
			},
		},
	},
	"required": []string{"projectName", "components"},
}

type GenerateInput struct {
	Prompt   string         `json:"prompt"`
	UserInfo map[string]any `json:"userInfo"`
}

// GenerationService turns a free-text prompt into a stored project.
type GenerationService interface {
	Generate(ctx context.Context, in GenerateInput) (*ProjectView, error)
}

type generationService struct {
	log       *logger.Logger
	ai        openai.Client
	projects  ProjectService
	canvasCfg CanvasConfig
	metrics   *observability.Metrics
}

func NewGenerationService(log *logger.Logger, ai openai.Client, projects ProjectService, canvasCfg CanvasConfig, metrics *observability.Metrics) GenerationService {
	return &generationService{
		log:       log.With("service", "GenerationService"),
		ai:        ai,
		projects:  projects,
		canvasCfg: canvasCfg,
		metrics:   metrics,
	}
}

type generatedProject struct {
	ProjectName string             `json:"projectName"`
	Description string             `json:"description"`
	Components  []canvas.Component `json:"components"`
}

func (gs *generationService) Generate(ctx context.Context, in GenerateInput) (*ProjectView, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, apierr.BadRequest("invalid_request", fmt.Errorf("prompt is required"))
	}
	if gs.ai == nil {
		return nil, canvas.Upstream("generate", fmt.Errorf("AI generation is not configured"))
	}

	start := time.Now()
	obj, err := gs.ai.GenerateJSON(ctx, generationSystemPrompt, "User Request: "+prompt, "generated_project", generationSchema)
	if err != nil {
		gs.metrics.ObserveLLMRequest("error", time.Since(start))
		if httpx.StatusCode(err) == http.StatusTooManyRequests {
			return nil, apierr.New(http.StatusTooManyRequests, "rate_limited", fmt.Errorf("AI provider rate limit exceeded, please wait 60 seconds before trying again"))
		}
		gs.log.Warn("Project generation failed", "error", err)
		return nil, canvas.Upstream("generate", err)
	}
	gs.metrics.ObserveLLMRequest("ok", time.Since(start))

	p, err := gs.buildProject(obj)
	if err != nil {
		gs.log.Warn("Generated project rejected", "error", err)
		return nil, apierr.New(http.StatusInternalServerError, "generation_invalid", fmt.Errorf("failed to parse AI response: %w", err))
	}
	return gs.projects.Persist(ctx, p, EventProjectGenerated)
}

// buildProject validates the model output. Nothing is kept unless the whole
// batch imports and the resulting document loads cleanly.
func (gs *generationService) buildProject(obj map[string]any) (*canvas.Project, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var gen generatedProject
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, err
	}
	if strings.TrimSpace(gen.ProjectName) == "" {
		return nil, errors.New("missing projectName")
	}
	if gen.Components == nil {
		return nil, errors.New("missing components")
	}

	opts := gs.canvasCfg.options()
	staging := canvas.NewGraph(opts...)
	if _, err := staging.Import(gen.Components); err != nil {
		return nil, err
	}
	doc := canvas.Document{
		ProjectName: strings.TrimSpace(gen.ProjectName),
		Description: gen.Description,
		Status:      types.ProjectStatusGenerated,
		Components:  staging.Components(),
		Connections: staging.Connections(),
	}
	return canvas.FromDocument(doc, opts...)
}

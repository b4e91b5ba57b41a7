package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/apierr"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type LibraryComponentInput struct {
	Name          *string         `json:"name"`
	Type          *string         `json:"type"`
	Description   *string         `json:"description"`
	Configuration json.RawMessage `json:"configuration"`
	Status        *string         `json:"status"`
	Version       *string         `json:"version"`
	ProjectID     *string         `json:"projectId"`
}

// LibraryService manages reusable component definitions.
type LibraryService interface {
	Create(ctx context.Context, in LibraryComponentInput) (*types.ComponentDefinition, error)
	List(ctx context.Context, filter repos.ComponentFilter) ([]*types.ComponentDefinition, error)
	Get(ctx context.Context, id uuid.UUID) (*types.ComponentDefinition, error)
	Update(ctx context.Context, id uuid.UUID, in LibraryComponentInput) (*types.ComponentDefinition, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type libraryService struct {
	log     *logger.Logger
	repo    repos.ComponentDefinitionRepo
	library LibraryTypes
}

// LibraryTypes reports whether a component type is known to the canvas.
type LibraryTypes interface {
	Names() []string
}

func NewLibraryService(log *logger.Logger, repo repos.ComponentDefinitionRepo, library LibraryTypes) LibraryService {
	return &libraryService{
		log:     log.With("service", "LibraryService"),
		repo:    repo,
		library: library,
	}
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (ls *libraryService) Create(ctx context.Context, in LibraryComponentInput) (*types.ComponentDefinition, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	def := &types.ComponentDefinition{
		OwnerID:     ownerID,
		Name:        strVal(in.Name),
		Type:        strVal(in.Type),
		Description: strVal(in.Description),
		Status:      strVal(in.Status),
		Version:     strVal(in.Version),
		ProjectID:   strVal(in.ProjectID),
	}
	if def.Name == "" || def.Type == "" {
		return nil, apierr.BadRequest("invalid_component", fmt.Errorf("name and type are required"))
	}
	cfg, err := configurationJSON(in.Configuration)
	if err != nil {
		return nil, err
	}
	def.Configuration = cfg
	if !ls.knownType(def.Type) {
		ls.log.Debug("Library component uses a type outside the palette", "type", def.Type)
	}
	created, err := ls.repo.Create(dbctx.Context{Ctx: ctx}, []*types.ComponentDefinition{def})
	if err != nil {
		return nil, fmt.Errorf("create component: %w", err)
	}
	return created[0], nil
}

func configurationJSON(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON([]byte("{}")), nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, apierr.BadRequest("invalid_configuration", fmt.Errorf("configuration must be a JSON object"))
	}
	return datatypes.JSON(raw), nil
}

func (ls *libraryService) knownType(typ string) bool {
	if ls.library == nil {
		return true
	}
	for _, n := range ls.library.Names() {
		if n == typ {
			return true
		}
	}
	return false
}

func (ls *libraryService) List(ctx context.Context, filter repos.ComponentFilter) ([]*types.ComponentDefinition, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	return ls.repo.ListByOwner(dbctx.Context{Ctx: ctx}, ownerID, filter)
}

func (ls *libraryService) Get(ctx context.Context, id uuid.UUID) (*types.ComponentDefinition, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	def, err := ls.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, fmt.Errorf("load component: %w", err)
	}
	if def == nil || def.OwnerID != ownerID {
		return nil, apierr.NotFound("component_not_found", fmt.Errorf("component %s not found", id))
	}
	return def, nil
}

func (ls *libraryService) Update(ctx context.Context, id uuid.UUID, in LibraryComponentInput) (*types.ComponentDefinition, error) {
	if _, err := ls.Get(ctx, id); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	for col, v := range map[string]*string{
		"name":        in.Name,
		"type":        in.Type,
		"description": in.Description,
		"status":      in.Status,
		"version":     in.Version,
		"project_id":  in.ProjectID,
	} {
		if v == nil {
			continue
		}
		val := strings.TrimSpace(*v)
		if val == "" && (col == "name" || col == "type") {
			return nil, apierr.BadRequest("invalid_component", fmt.Errorf("%s cannot be empty", col))
		}
		updates[col] = val
	}
	if len(in.Configuration) > 0 {
		cfg, err := configurationJSON(in.Configuration)
		if err != nil {
			return nil, err
		}
		updates["configuration"] = cfg
	}
	if err := ls.repo.Update(dbctx.Context{Ctx: ctx}, id, updates); err != nil {
		return nil, fmt.Errorf("update component: %w", err)
	}
	return ls.Get(ctx, id)
}

func (ls *libraryService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := ls.Get(ctx, id); err != nil {
		return err
	}
	if err := ls.repo.SoftDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id}); err != nil {
		return fmt.Errorf("delete component: %w", err)
	}
	return nil
}

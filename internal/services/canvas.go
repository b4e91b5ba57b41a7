package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

// CanvasEdit is the outcome of one server-side edit: the touched entity plus the
// saved document.
type CanvasEdit struct {
	Component  *canvas.Component   `json:"component,omitempty"`
	Connection *canvas.Connection  `json:"connection,omitempty"`
	Removed    []canvas.Connection `json:"removedConnections,omitempty"`
	Deleted    *bool               `json:"deleted,omitempty"`
	Project    *ProjectView        `json:"project"`
}

type ValidationReport struct {
	Valid      bool               `json:"valid"`
	Violations []canvas.Violation `json:"violations"`
}

// CanvasService applies single graph operations to a stored project.
type CanvasService interface {
	AddComponent(ctx context.Context, projectID, typ string, patch *canvas.PropsPatch) (*CanvasEdit, error)
	UpdateComponent(ctx context.Context, projectID, componentID string, patch canvas.PropsPatch) (*CanvasEdit, error)
	MoveComponent(ctx context.Context, projectID, componentID string, dx, dy float64) (*CanvasEdit, error)
	DuplicateComponent(ctx context.Context, projectID, componentID string) (*CanvasEdit, error)
	RemoveComponent(ctx context.Context, projectID, componentID string) (*CanvasEdit, error)
	Connect(ctx context.Context, projectID string, req canvas.ConnectRequest) (*CanvasEdit, error)
	Disconnect(ctx context.Context, projectID, connectionID string) (*CanvasEdit, error)
	Validate(ctx context.Context, projectID string) (*ValidationReport, error)
	SourceText(ctx context.Context, projectID string) (string, error)
	Points(ctx context.Context, projectID, componentID string) ([]canvas.ConnectionPoint, error)
	ComponentTypes() []canvas.TypeSpec
}

type canvasService struct {
	log      *logger.Logger
	projects ProjectService
	registry *canvas.Registry
}

func NewCanvasService(log *logger.Logger, projects ProjectService, registry *canvas.Registry) CanvasService {
	if registry == nil {
		registry = canvas.DefaultRegistry()
	}
	return &canvasService{
		log:      log.With("service", "CanvasService"),
		projects: projects,
		registry: registry,
	}
}

func (cs *canvasService) AddComponent(ctx context.Context, projectID, typ string, patch *canvas.PropsPatch) (*CanvasEdit, error) {
	var added canvas.Component
	view, err := cs.projects.Edit(ctx, projectID, "add", func(p *canvas.Project) error {
		c, err := p.Graph.Add(typ, patch)
		added = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CanvasEdit{Component: &added, Project: view}, nil
}

func (cs *canvasService) UpdateComponent(ctx context.Context, projectID, componentID string, patch canvas.PropsPatch) (*CanvasEdit, error) {
	var updated canvas.Component
	view, err := cs.projects.Edit(ctx, projectID, "update", func(p *canvas.Project) error {
		c, err := p.Graph.Update(componentID, patch)
		updated = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CanvasEdit{Component: &updated, Project: view}, nil
}

func (cs *canvasService) MoveComponent(ctx context.Context, projectID, componentID string, dx, dy float64) (*CanvasEdit, error) {
	var moved canvas.Component
	view, err := cs.projects.Edit(ctx, projectID, "move", func(p *canvas.Project) error {
		c, err := p.Graph.Move(componentID, dx, dy)
		moved = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CanvasEdit{Component: &moved, Project: view}, nil
}

func (cs *canvasService) DuplicateComponent(ctx context.Context, projectID, componentID string) (*CanvasEdit, error) {
	var dup canvas.Component
	view, err := cs.projects.Edit(ctx, projectID, "duplicate", func(p *canvas.Project) error {
		c, err := p.Graph.Duplicate(componentID)
		dup = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CanvasEdit{Component: &dup, Project: view}, nil
}

// RemoveComponent is idempotent: an id that is already gone yields
// deleted=false and no save.
func (cs *canvasService) RemoveComponent(ctx context.Context, projectID, componentID string) (*CanvasEdit, error) {
	var (
		removed  bool
		cascaded []canvas.Connection
	)
	view, err := cs.projects.Edit(ctx, projectID, "remove", func(p *canvas.Project) error {
		removed, cascaded = p.Graph.Remove(componentID)
		if !removed {
			return ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if removed {
		cs.log.Debug("Component removed", "project_id", projectID, "component_id", componentID, "cascaded", len(cascaded))
	}
	return &CanvasEdit{Removed: cascaded, Deleted: &removed, Project: view}, nil
}

func (cs *canvasService) Connect(ctx context.Context, projectID string, req canvas.ConnectRequest) (*CanvasEdit, error) {
	var conn canvas.Connection
	view, err := cs.projects.Edit(ctx, projectID, "connect", func(p *canvas.Project) error {
		c, err := p.Graph.Connect(req)
		conn = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CanvasEdit{Connection: &conn, Project: view}, nil
}

func (cs *canvasService) Disconnect(ctx context.Context, projectID, connectionID string) (*CanvasEdit, error) {
	var removed bool
	view, err := cs.projects.Edit(ctx, projectID, "disconnect", func(p *canvas.Project) error {
		removed = p.Graph.Disconnect(connectionID)
		if !removed {
			return ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CanvasEdit{Deleted: &removed, Project: view}, nil
}

// Validate only ever reports a clean graph for stored projects, because loading
// rejects violating documents. It is kept as an explicit check for clients.
func (cs *canvasService) Validate(ctx context.Context, projectID string) (*ValidationReport, error) {
	p, err := cs.projects.Load(ctx, projectID)
	if err != nil {
		if v := violationsOf(err); v != nil {
			return &ValidationReport{Valid: false, Violations: v}, nil
		}
		return nil, err
	}
	v := p.Graph.Validate()
	if v == nil {
		v = []canvas.Violation{}
	}
	return &ValidationReport{Valid: len(v) == 0, Violations: v}, nil
}

func violationsOf(err error) []canvas.Violation {
	var ce *canvas.Error
	if !errors.As(err, &ce) || ce.Kind != canvas.KindCorruptDocument || len(ce.Violations) == 0 {
		return nil
	}
	return ce.Violations
}

func (cs *canvasService) SourceText(ctx context.Context, projectID string) (string, error) {
	p, err := cs.projects.Load(ctx, projectID)
	if err != nil {
		return "", err
	}
	return canvas.ToSourceText(p), nil
}

func (cs *canvasService) Points(ctx context.Context, projectID, componentID string) ([]canvas.ConnectionPoint, error) {
	p, err := cs.projects.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c, ok := p.Graph.Get(componentID)
	if !ok {
		return nil, &canvas.Error{Kind: canvas.KindNotFound, Op: "points", ID: componentID, Err: fmt.Errorf("no such component")}
	}
	return canvas.Points(c, p.Graph.ConnectionsFor(componentID), p.Graph.Registry()), nil
}

func (cs *canvasService) ComponentTypes() []canvas.TypeSpec {
	names := cs.registry.Names()
	out := make([]canvas.TypeSpec, 0, len(names))
	for _, n := range names {
		if spec, ok := cs.registry.Lookup(n); ok {
			out = append(out, spec)
		}
	}
	return out
}

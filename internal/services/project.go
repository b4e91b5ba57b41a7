package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/observability"
	"github.com/stackgenie/stackgenie-backend/internal/platform/apierr"
	"github.com/stackgenie/stackgenie-backend/internal/platform/ctxutil"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

const (
	EventProjectUpdated   = "project.updated"
	EventProjectGenerated = "project.generated"
	EventProjectDeleted   = "project.deleted"
)

var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ErrUnchanged is returned by an Edit callback that left the graph as it was.
// Edit then skips the save and reports the current document.
var ErrUnchanged = errors.New("project unchanged")

// CanvasConfig is shared by every graph the services build.
type CanvasConfig struct {
	Registry *canvas.Registry
	Policy   canvas.Policy
}

func (c CanvasConfig) options() []canvas.Option {
	reg := c.Registry
	if reg == nil {
		reg = canvas.DefaultRegistry()
	}
	return []canvas.Option{canvas.WithRegistry(reg), canvas.WithPolicy(c.Policy)}
}

// EventDispatcher fans project events out to subscribers. WebhookService implements it.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ownerID uuid.UUID, projectID, event string, data any)
}

type ProjectInput struct {
	ProjectID   string              `json:"projectId"`
	ProjectName string              `json:"projectName"`
	Description string              `json:"description"`
	Status      string              `json:"status"`
	Components  []canvas.Component  `json:"components"`
	Connections []canvas.Connection `json:"connections"`
	Schema      json.RawMessage     `json:"schema"`
}

// ProjectUpdate carries a full-document save. Nil fields keep their stored value.
type ProjectUpdate struct {
	ProjectName *string              `json:"projectName"`
	Description *string              `json:"description"`
	Status      *string              `json:"status"`
	Components  *[]canvas.Component  `json:"components"`
	Connections *[]canvas.Connection `json:"connections"`
	Schema      json.RawMessage      `json:"schema"`
}

type ProjectView struct {
	canvas.Document
	Revision  int       `json:"revision"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProjectService interface {
	Create(ctx context.Context, in ProjectInput) (*ProjectView, error)
	List(ctx context.Context) ([]*ProjectView, error)
	Get(ctx context.Context, projectID string) (*ProjectView, error)
	Save(ctx context.Context, projectID string, in ProjectUpdate) (*ProjectView, error)
	Delete(ctx context.Context, projectID string) error
	// Load rebuilds the live project for read-only use.
	Load(ctx context.Context, projectID string) (*canvas.Project, error)
	// Edit loads the project, applies fn and persists the result. Edits to one
	// project are serialized within this process.
	Edit(ctx context.Context, projectID, op string, fn func(p *canvas.Project) error) (*ProjectView, error)
	// Persist stores an already built project as a new row owned by the caller.
	Persist(ctx context.Context, p *canvas.Project, event string) (*ProjectView, error)
}

type projectService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	userRepo    repos.UserRepo
	canvasCfg   CanvasConfig
	events      EventDispatcher
	metrics     *observability.Metrics
	locks       *keyedMutex
}

func NewProjectService(
	db *gorm.DB,
	log *logger.Logger,
	projectRepo repos.ProjectRepo,
	userRepo repos.UserRepo,
	canvasCfg CanvasConfig,
	events EventDispatcher,
	metrics *observability.Metrics,
) ProjectService {
	serviceLog := log.With("service", "ProjectService")
	if canvasCfg.Registry == nil {
		canvasCfg.Registry = canvas.DefaultRegistry()
	}
	return &projectService{
		db:          db,
		log:         serviceLog,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		canvasCfg:   canvasCfg,
		events:      events,
		metrics:     metrics,
		locks:       newKeyedMutex(),
	}
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	id := ctxutil.UserID(ctx)
	if id == uuid.Nil {
		return uuid.Nil, errUnauthorized
	}
	return id, nil
}

func newProjectID() string {
	return "proj_" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func projectNotFound(projectID string) error {
	return apierr.NotFound("project_not_found", fmt.Errorf("project %q not found", projectID))
}

func (ps *projectService) Create(ctx context.Context, in ProjectInput) (*ProjectView, error) {
	p := canvas.NewProject(strings.TrimSpace(in.ProjectID), strings.TrimSpace(in.ProjectName), ps.canvasCfg.options()...)
	if len(in.Components) > 0 || len(in.Connections) > 0 {
		loaded, err := canvas.FromDocument(canvas.Document{
			ProjectID:   p.ProjectID,
			Components:  in.Components,
			Connections: in.Connections,
		}, ps.canvasCfg.options()...)
		if err != nil {
			return nil, err
		}
		p.Graph = loaded.Graph
	}
	p.Description = in.Description
	p.Status = in.Status
	p.Schema = in.Schema
	return ps.Persist(ctx, p, "")
}

func (ps *projectService) Persist(ctx context.Context, p *canvas.Project, event string) (*ProjectView, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, apierr.BadRequest("invalid_project", fmt.Errorf("projectName is required"))
	}
	if p.ProjectID != "" && !projectIDPattern.MatchString(p.ProjectID) {
		return nil, apierr.BadRequest("invalid_project_id", fmt.Errorf("projectId may only contain letters, digits, '-' and '_'"))
	}
	if p.Status == "" {
		p.Status = types.ProjectStatusCreated
	}

	var row *types.Project
	err = ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if p.ProjectID == "" {
			id, err := ps.freeProjectID(inner)
			if err != nil {
				return err
			}
			p.ProjectID = id
		} else {
			taken, err := ps.projectRepo.ProjectIDExists(inner, p.ProjectID)
			if err != nil {
				return fmt.Errorf("check project id: %w", err)
			}
			if taken {
				return apierr.Conflict("project_exists", fmt.Errorf("project %q already exists", p.ProjectID))
			}
		}
		r, err := rowFromProject(p)
		if err != nil {
			return err
		}
		r.OwnerID = ownerID
		r.Revision = 1
		users, err := ps.userRepo.GetByIDs(inner, []uuid.UUID{ownerID})
		if err != nil {
			ps.log.Warn("Creator lookup failed", "project_id", p.ProjectID, "error", err)
		} else if len(users) > 0 {
			r.CreatedByName = users[0].Name
			r.CreatedByEmail = users[0].Email
		}
		created, err := ps.projectRepo.Create(inner, r)
		if err != nil {
			return canvas.Upstream("persist", err)
		}
		row = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	ps.log.Info("Project created", "project_id", row.ProjectID, "owner_id", ownerID, "components", p.Graph.Len())
	if event != "" {
		ps.dispatch(ctx, row, event)
	}
	return viewFromRow(row)
}

func (ps *projectService) freeProjectID(dbc dbctx.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id := newProjectID()
		taken, err := ps.projectRepo.ProjectIDExists(dbc, id)
		if err != nil {
			return "", fmt.Errorf("check project id: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not allocate a free project id")
}

func (ps *projectService) List(ctx context.Context) ([]*ProjectView, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ps.projectRepo.ListByOwner(dbctx.Context{Ctx: ctx}, ownerID)
	if err != nil {
		return nil, canvas.Upstream("list", err)
	}
	out := make([]*ProjectView, 0, len(rows))
	for _, r := range rows {
		v, err := viewFromRow(r)
		if err != nil {
			ps.log.Warn("Skipping unreadable project", "project_id", r.ProjectID, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (ps *projectService) owned(dbc dbctx.Context, projectID string) (*types.Project, error) {
	ownerID, err := callerID(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	row, err := ps.projectRepo.GetByProjectID(dbc, projectID)
	if err != nil {
		return nil, canvas.Upstream("load", err)
	}
	if row == nil {
		return nil, projectNotFound(projectID)
	}
	if row.OwnerID != ownerID {
		return nil, apierr.Forbidden("forbidden", fmt.Errorf("project %q belongs to another user", projectID))
	}
	return row, nil
}

func (ps *projectService) Get(ctx context.Context, projectID string) (*ProjectView, error) {
	row, err := ps.owned(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return nil, err
	}
	return viewFromRow(row)
}

func (ps *projectService) Load(ctx context.Context, projectID string) (*canvas.Project, error) {
	row, err := ps.owned(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return nil, err
	}
	return ps.projectFromRow(row)
}

func (ps *projectService) Save(ctx context.Context, projectID string, in ProjectUpdate) (*ProjectView, error) {
	return ps.Edit(ctx, projectID, "save", func(p *canvas.Project) error {
		doc := canvas.ToDocument(p)
		if in.ProjectName != nil && strings.TrimSpace(*in.ProjectName) != "" {
			doc.ProjectName = strings.TrimSpace(*in.ProjectName)
		}
		if in.Description != nil {
			doc.Description = *in.Description
		}
		if in.Status != nil && *in.Status != "" {
			doc.Status = *in.Status
		}
		if in.Components != nil {
			doc.Components = *in.Components
		}
		if in.Connections != nil {
			doc.Connections = *in.Connections
		}
		if len(in.Schema) > 0 {
			doc.Schema = in.Schema
		}
		// A client-sent document gets the same checks as a stored one.
		next, err := canvas.FromDocument(doc, ps.canvasCfg.options()...)
		if err != nil {
			return err
		}
		*p = *next
		return nil
	})
}

func (ps *projectService) Edit(ctx context.Context, projectID, op string, fn func(p *canvas.Project) error) (*ProjectView, error) {
	unlock := ps.locks.Lock(projectID)
	defer unlock()

	dbc := dbctx.Context{Ctx: ctx}
	row, err := ps.owned(dbc, projectID)
	if err != nil {
		return nil, err
	}
	p, err := ps.projectFromRow(row)
	if err != nil {
		ps.metrics.IncCanvasOp(op, "corrupt")
		return nil, err
	}
	if err := fn(p); err != nil {
		if errors.Is(err, ErrUnchanged) {
			ps.metrics.IncCanvasOp(op, "noop")
			return viewFromRow(row)
		}
		ps.metrics.IncCanvasOp(op, string(canvas.KindOf(err)))
		return nil, err
	}

	next, err := rowFromProject(p)
	if err != nil {
		return nil, err
	}
	row.Name = next.Name
	row.Description = next.Description
	row.Status = next.Status
	row.Components = next.Components
	row.Connections = next.Connections
	row.Schema = next.Schema
	if err := ps.projectRepo.Save(dbc, row); err != nil {
		ps.metrics.IncCanvasOp(op, "upstream")
		return nil, canvas.Upstream(op, err)
	}
	row.Revision++
	row.UpdatedAt = time.Now()
	ps.metrics.IncCanvasOp(op, "ok")
	ps.log.Debug("Project edited", "project_id", projectID, "op", op, "revision", row.Revision)
	ps.dispatch(ctx, row, EventProjectUpdated)
	return viewFromRow(row)
}

func (ps *projectService) Delete(ctx context.Context, projectID string) error {
	unlock := ps.locks.Lock(projectID)
	defer unlock()

	dbc := dbctx.Context{Ctx: ctx}
	row, err := ps.owned(dbc, projectID)
	if err != nil {
		return err
	}
	deleted, err := ps.projectRepo.SoftDeleteByProjectID(dbc, projectID)
	if err != nil {
		return canvas.Upstream("delete", err)
	}
	if !deleted {
		return projectNotFound(projectID)
	}
	ps.log.Info("Project deleted", "project_id", projectID)
	ps.dispatch(ctx, row, EventProjectDeleted)
	return nil
}

func (ps *projectService) dispatch(ctx context.Context, row *types.Project, event string) {
	if ps.events == nil {
		return
	}
	ps.events.Dispatch(ctx, row.OwnerID, row.ProjectID, event, map[string]any{
		"projectId":   row.ProjectID,
		"projectName": row.Name,
		"status":      row.Status,
		"revision":    row.Revision,
	})
}

func (ps *projectService) projectFromRow(row *types.Project) (*canvas.Project, error) {
	doc, err := documentFromRow(row)
	if err != nil {
		return nil, err
	}
	return canvas.FromDocument(doc, ps.canvasCfg.options()...)
}

func documentFromRow(row *types.Project) (canvas.Document, error) {
	doc := canvas.Document{
		ProjectID:   row.ProjectID,
		ProjectName: row.Name,
		Description: row.Description,
		Status:      row.Status,
		Components:  []canvas.Component{},
		Connections: []canvas.Connection{},
	}
	if len(row.Components) > 0 && string(row.Components) != "null" {
		if err := json.Unmarshal(row.Components, &doc.Components); err != nil {
			return doc, &canvas.Error{Kind: canvas.KindCorruptDocument, Op: "load", ID: row.ProjectID, Err: fmt.Errorf("decode components: %w", err)}
		}
	}
	if len(row.Connections) > 0 && string(row.Connections) != "null" {
		if err := json.Unmarshal(row.Connections, &doc.Connections); err != nil {
			return doc, &canvas.Error{Kind: canvas.KindCorruptDocument, Op: "load", ID: row.ProjectID, Err: fmt.Errorf("decode connections: %w", err)}
		}
	}
	if len(row.Schema) > 0 && string(row.Schema) != "null" {
		doc.Schema = json.RawMessage(row.Schema)
	}
	return doc, nil
}

func rowFromProject(p *canvas.Project) (*types.Project, error) {
	doc := canvas.ToDocument(p)
	comps, err := json.Marshal(doc.Components)
	if err != nil {
		return nil, fmt.Errorf("encode components: %w", err)
	}
	conns, err := json.Marshal(doc.Connections)
	if err != nil {
		return nil, fmt.Errorf("encode connections: %w", err)
	}
	row := &types.Project{
		ProjectID:   doc.ProjectID,
		Name:        doc.ProjectName,
		Description: doc.Description,
		Status:      doc.Status,
		Components:  datatypes.JSON(comps),
		Connections: datatypes.JSON(conns),
	}
	if len(doc.Schema) > 0 {
		row.Schema = datatypes.JSON(doc.Schema)
	}
	return row, nil
}

func viewFromRow(row *types.Project) (*ProjectView, error) {
	doc, err := documentFromRow(row)
	if err != nil {
		return nil, err
	}
	return &ProjectView{Document: doc, Revision: row.Revision, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyedEntry{}}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/observability"
	"github.com/stackgenie/stackgenie-backend/internal/platform/apierr"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/httpx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

const (
	TrackFrontend = "frontend"
	TrackBackend  = "backend"
	TrackDatabase = "database"
)

var (
	frontendPlatforms = map[string]string{"vercel": "Vercel", "netlify": "Netlify"}
	backendPlatforms  = map[string]string{"render": "Render", "heroku": "Heroku"}
	databaseKinds     = map[string]string{"postgresql": "PostgreSQL", "mongodb": "MongoDB", "mysql": "MySQL"}
)

// canonical resolves name case-insensitively against a table of supported values.
func canonical(table map[string]string, name string) (string, bool) {
	v, ok := table[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

type DeploymentInput struct {
	ProjectID string                `json:"projectId"`
	Frontend  *types.FrontendTarget `json:"frontend"`
	Backend   *types.BackendTarget  `json:"backend"`
}

type DeploymentConfig struct {
	// StepDelay is how long each simulated platform step takes.
	StepDelay time.Duration
	// StepRetries bounds retries of a transiently failing step.
	StepRetries int
}

// Provisioner performs one platform step for a track and returns the public
// URL it produced, if any. Transient failures should carry a retryable
// httpx status so the runner retries them.
type Provisioner interface {
	Provision(ctx context.Context, track, target, projectID string) (string, error)
}

type simulatedProvisioner struct {
	delay time.Duration
}

// NewSimulatedProvisioner waits delay per step and reports a synthetic URL.
func NewSimulatedProvisioner(delay time.Duration) Provisioner {
	return simulatedProvisioner{delay: delay}
}

func (s simulatedProvisioner) Provision(ctx context.Context, track, target, projectID string) (string, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	slug := strings.ToLower(strings.ReplaceAll(projectID, "_", "-"))
	switch target {
	case "Vercel":
		return fmt.Sprintf("https://%s.vercel.app", slug), nil
	case "Netlify":
		return fmt.Sprintf("https://%s.netlify.app", slug), nil
	case "Render":
		return fmt.Sprintf("https://%s.onrender.com", slug), nil
	case "Heroku":
		return fmt.Sprintf("https://%s.herokuapp.com", slug), nil
	case "PostgreSQL", "MongoDB", "MySQL":
		return "", nil
	}
	return "", fmt.Errorf("unsupported %s target %q", track, target)
}

// DeploymentService records deployment requests and drives them to a
// terminal status in the background.
type DeploymentService interface {
	Create(ctx context.Context, in DeploymentInput) (*types.Deployment, error)
	Status(ctx context.Context, id uuid.UUID) (*types.Deployment, error)
	ListByProject(ctx context.Context, projectID string) ([]*types.Deployment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*types.Deployment, error)
	Logs(ctx context.Context, id uuid.UUID) ([]types.DeploymentLog, error)
	// Start resumes runs left pending or in progress by a previous process.
	Start(ctx context.Context) error
	Wait()
	Close()
}

type deploymentService struct {
	log         *logger.Logger
	repo        repos.DeploymentRepo
	projects    ProjectService
	events      EventDispatcher
	provisioner Provisioner
	cfg         DeploymentConfig
	metrics     *observability.Metrics

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu   sync.Mutex
	runs map[uuid.UUID]context.CancelFunc
}

func NewDeploymentService(
	log *logger.Logger,
	repo repos.DeploymentRepo,
	projects ProjectService,
	events EventDispatcher,
	provisioner Provisioner,
	cfg DeploymentConfig,
	metrics *observability.Metrics,
) DeploymentService {
	if provisioner == nil {
		provisioner = NewSimulatedProvisioner(cfg.StepDelay)
	}
	if cfg.StepRetries < 0 {
		cfg.StepRetries = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &deploymentService{
		log:         log.With("service", "DeploymentService"),
		repo:        repo,
		projects:    projects,
		events:      events,
		provisioner: provisioner,
		cfg:         cfg,
		metrics:     metrics,
		baseCtx:     ctx,
		cancel:      cancel,
		runs:        map[uuid.UUID]context.CancelFunc{},
	}
}

func logLine(level, format string, args ...any) types.DeploymentLog {
	return types.DeploymentLog{Timestamp: time.Now().UTC(), Level: level, Message: fmt.Sprintf(format, args...)}
}

func validateTargets(in DeploymentInput) (types.FrontendTarget, types.BackendTarget, error) {
	if in.Frontend == nil || in.Backend == nil {
		return types.FrontendTarget{}, types.BackendTarget{}, apierr.BadRequest("invalid_deployment", fmt.Errorf("both frontend and backend configurations are required"))
	}
	fe, be := *in.Frontend, *in.Backend
	var ok bool
	if fe.Platform, ok = canonical(frontendPlatforms, fe.Platform); !ok {
		return fe, be, apierr.BadRequest("invalid_deployment", fmt.Errorf("unsupported frontend platform %q", in.Frontend.Platform))
	}
	if be.Platform, ok = canonical(backendPlatforms, be.Platform); !ok {
		return fe, be, apierr.BadRequest("invalid_deployment", fmt.Errorf("unsupported backend platform %q", in.Backend.Platform))
	}
	if be.Database, ok = canonical(databaseKinds, be.Database); !ok {
		return fe, be, apierr.BadRequest("invalid_deployment", fmt.Errorf("unsupported database %q", in.Backend.Database))
	}
	fe.Status, fe.URL, fe.BuildTime = types.DeploymentPending, "", 0
	be.Status, be.URL = types.DeploymentPending, ""
	return fe, be, nil
}

func (ds *deploymentService) Create(ctx context.Context, in DeploymentInput) (*types.Deployment, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return nil, apierr.BadRequest("invalid_deployment", fmt.Errorf("projectId is required"))
	}
	if _, err := ds.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	fe, be, err := validateTargets(in)
	if err != nil {
		return nil, err
	}
	created, err := ds.repo.Create(dbctx.Context{Ctx: ctx}, &types.Deployment{
		OwnerID:   ownerID,
		ProjectID: projectID,
		Frontend:  datatypes.NewJSONType(fe),
		Backend:   datatypes.NewJSONType(be),
		Status:    types.DeploymentPending,
		Logs: datatypes.JSONSlice[types.DeploymentLog]{
			logLine("info", "Deployment queued: %s frontend, %s backend with %s", fe.Platform, be.Platform, be.Database),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}
	ds.log.Info("Deployment created", "deployment_id", created.ID, "project_id", projectID)
	ds.launch(created.ID)
	return created, nil
}

func (ds *deploymentService) owned(ctx context.Context, id uuid.UUID) (*types.Deployment, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	d, err := ds.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, fmt.Errorf("load deployment: %w", err)
	}
	if d == nil || d.OwnerID != ownerID {
		return nil, apierr.NotFound("deployment_not_found", fmt.Errorf("deployment %s not found", id))
	}
	return d, nil
}

func (ds *deploymentService) Status(ctx context.Context, id uuid.UUID) (*types.Deployment, error) {
	return ds.owned(ctx, id)
}

func (ds *deploymentService) ListByProject(ctx context.Context, projectID string) ([]*types.Deployment, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := ds.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	out, err := ds.repo.ListByProject(dbctx.Context{Ctx: ctx}, ownerID, projectID)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	return out, nil
}

func (ds *deploymentService) Logs(ctx context.Context, id uuid.UUID) ([]types.DeploymentLog, error) {
	d, err := ds.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Logs == nil {
		return []types.DeploymentLog{}, nil
	}
	return d.Logs, nil
}

func (ds *deploymentService) Cancel(ctx context.Context, id uuid.UUID) (*types.Deployment, error) {
	if _, err := ds.owned(ctx, id); err != nil {
		return nil, err
	}
	d, applied, err := ds.repo.Transition(dbctx.Context{Ctx: ctx}, id, func(d *types.Deployment) {
		now := time.Now().UTC()
		d.Status = types.DeploymentCanceled
		d.CompletedAt = &now
		fe, be := d.Frontend.Data(), d.Backend.Data()
		if !types.DeploymentTerminal(fe.Status) {
			fe.Status = types.DeploymentCanceled
		}
		if !types.DeploymentTerminal(be.Status) {
			be.Status = types.DeploymentCanceled
		}
		d.Frontend, d.Backend = datatypes.NewJSONType(fe), datatypes.NewJSONType(be)
		d.Logs = append(d.Logs, logLine("warn", "Deployment canceled"))
	})
	if err != nil {
		return nil, fmt.Errorf("cancel deployment: %w", err)
	}
	if d == nil {
		return nil, apierr.NotFound("deployment_not_found", fmt.Errorf("deployment %s not found", id))
	}
	if !applied {
		return nil, apierr.BadRequest("deployment_not_cancelable", fmt.Errorf("deployment cannot be canceled in status %q", d.Status))
	}
	ds.mu.Lock()
	if stop, ok := ds.runs[id]; ok {
		stop()
	}
	ds.mu.Unlock()
	ds.metrics.IncDeployment(types.DeploymentCanceled)
	ds.log.Info("Deployment canceled", "deployment_id", id)
	return d, nil
}

func (ds *deploymentService) Start(ctx context.Context) error {
	rows, err := ds.repo.ListByStatus(dbctx.Context{Ctx: ctx}, []string{types.DeploymentPending, types.DeploymentInProgress})
	if err != nil {
		return fmt.Errorf("list unfinished deployments: %w", err)
	}
	for _, d := range rows {
		ds.launch(d.ID)
	}
	if len(rows) > 0 {
		ds.log.Info("Resumed unfinished deployments", "count", len(rows))
	}
	return nil
}

func (ds *deploymentService) launch(id uuid.UUID) {
	if ds.baseCtx.Err() != nil {
		return
	}
	ds.mu.Lock()
	if _, running := ds.runs[id]; running {
		ds.mu.Unlock()
		return
	}
	runCtx, stop := context.WithCancel(ds.baseCtx)
	ds.runs[id] = stop
	ds.mu.Unlock()

	ds.wg.Add(1)
	go func() {
		defer ds.wg.Done()
		defer func() {
			ds.mu.Lock()
			delete(ds.runs, id)
			ds.mu.Unlock()
			stop()
		}()
		ds.run(runCtx, id)
	}()
}

// run drives one deployment. The backend track provisions its database first;
// the frontend track runs alongside it. A failed track stops the other.
func (ds *deploymentService) run(ctx context.Context, id uuid.UUID) {
	log := ds.log.With("deployment_id", id)
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}

	d, applied, err := ds.repo.Transition(dbc, id, func(d *types.Deployment) {
		if d.StartedAt == nil {
			now := time.Now().UTC()
			d.StartedAt = &now
		}
		if d.Status != types.DeploymentInProgress {
			d.Logs = append(d.Logs, logLine("info", "Deployment started"))
		}
		d.Status = types.DeploymentInProgress
	})
	if err != nil {
		log.Error("Starting deployment failed", "error", err)
		return
	}
	if d == nil || !applied {
		return
	}

	fe, be := d.Frontend.Data(), d.Backend.Data()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if be.Status == types.DeploymentCompleted {
			return nil
		}
		if _, err := ds.step(gctx, id, d.ProjectID, TrackDatabase, be.Database); err != nil {
			ds.finishTrack(ctx, id, TrackBackend, "", err)
			return fmt.Errorf("database setup failed: %w", err)
		}
		url, err := ds.step(gctx, id, d.ProjectID, TrackBackend, be.Platform)
		ds.finishTrack(ctx, id, TrackBackend, url, err)
		if err != nil {
			return fmt.Errorf("backend deployment failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if fe.Status == types.DeploymentCompleted {
			return nil
		}
		start := time.Now()
		url, err := ds.step(gctx, id, d.ProjectID, TrackFrontend, fe.Platform)
		ds.finishTrack(ctx, id, TrackFrontend, url, err, int(time.Since(start).Seconds()))
		if err != nil {
			return fmt.Errorf("frontend deployment failed: %w", err)
		}
		return nil
	})
	runErr := g.Wait()

	if ctx.Err() != nil {
		// Canceled by the user or by shutdown; Cancel already recorded the
		// former and Start picks the latter up again.
		return
	}
	final, applied, err := ds.repo.Transition(dbc, id, func(d *types.Deployment) {
		now := time.Now().UTC()
		d.CompletedAt = &now
		if runErr != nil {
			d.Status = types.DeploymentFailed
			d.Error = runErr.Error()
			d.Logs = append(d.Logs, logLine("error", "Deployment failed: %s", runErr.Error()))
			return
		}
		d.Status = types.DeploymentCompleted
		d.Logs = append(d.Logs, logLine("info", "Deployment completed"))
	})
	if err != nil {
		log.Error("Finishing deployment failed", "error", err)
		return
	}
	if final == nil || !applied {
		return
	}
	ds.metrics.IncDeployment(final.Status)
	log.Info("Deployment finished", "status", final.Status)

	event := EventDeploymentCompleted
	if final.Status == types.DeploymentFailed {
		event = EventDeploymentFailed
	}
	if ds.events != nil {
		ds.events.Dispatch(dbc.Ctx, final.OwnerID, final.ProjectID, event, map[string]any{
			"deploymentId": final.ID,
			"projectId":    final.ProjectID,
			"status":       final.Status,
			"error":        final.Error,
			"frontendUrl":  final.Frontend.Data().URL,
			"backendUrl":   final.Backend.Data().URL,
		})
	}
}

// step runs one provisioning step with retries and logs its progress.
func (ds *deploymentService) step(ctx context.Context, id uuid.UUID, projectID, track, target string) (string, error) {
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if _, _, err := ds.repo.Transition(dbc, id, func(d *types.Deployment) {
		switch track {
		case TrackFrontend:
			fe := d.Frontend.Data()
			fe.Status = types.DeploymentInProgress
			d.Frontend = datatypes.NewJSONType(fe)
		case TrackBackend, TrackDatabase:
			be := d.Backend.Data()
			be.Status = types.DeploymentInProgress
			d.Backend = datatypes.NewJSONType(be)
		}
		d.Logs = append(d.Logs, logLine("info", "[%s] Deploying to %s", track, target))
	}); err != nil {
		return "", err
	}

	policy := httpx.RetryPolicy{MaxRetries: ds.cfg.StepRetries, Initial: 200 * time.Millisecond, Max: 5 * time.Second}
	return httpx.Retry(ctx, policy, func() (string, error) {
		return ds.provisioner.Provision(ctx, track, target, projectID)
	}, func(err error, wait time.Duration) {
		ds.appendLog(ctx, id, logLine("warn", "[%s] %s step failed, retrying in %s: %v", track, target, wait.Round(time.Millisecond), err))
	})
}

// finishTrack records a track outcome. buildTime is only used by the frontend.
func (ds *deploymentService) finishTrack(ctx context.Context, id uuid.UUID, track, url string, stepErr error, buildTime ...int) {
	if ctx.Err() != nil {
		return
	}
	status, level, msg := types.DeploymentCompleted, "info", fmt.Sprintf("[%s] Deployment successful", track)
	if stepErr != nil {
		status, level, msg = types.DeploymentFailed, "error", fmt.Sprintf("[%s] %v", track, stepErr)
		if errors.Is(stepErr, context.Canceled) {
			status, msg = types.DeploymentCanceled, fmt.Sprintf("[%s] Stopped after another track failed", track)
		}
	}
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if _, _, err := ds.repo.Transition(dbc, id, func(d *types.Deployment) {
		switch track {
		case TrackFrontend:
			fe := d.Frontend.Data()
			fe.Status, fe.URL = status, url
			if len(buildTime) > 0 {
				fe.BuildTime = buildTime[0]
			}
			d.Frontend = datatypes.NewJSONType(fe)
		case TrackBackend:
			be := d.Backend.Data()
			be.Status, be.URL = status, url
			d.Backend = datatypes.NewJSONType(be)
		}
		d.Logs = append(d.Logs, logLine(level, "%s", msg))
	}); err != nil {
		ds.log.Warn("Recording track status failed", "deployment_id", id, "track", track, "error", err)
	}
}

func (ds *deploymentService) appendLog(ctx context.Context, id uuid.UUID, line types.DeploymentLog) {
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if _, _, err := ds.repo.Transition(dbc, id, func(d *types.Deployment) {
		d.Logs = append(d.Logs, line)
	}); err != nil {
		ds.log.Warn("Appending deployment log failed", "deployment_id", id, "error", err)
	}
}

func (ds *deploymentService) Wait() {
	ds.wg.Wait()
}

func (ds *deploymentService) Close() {
	ds.cancel()
	ds.wg.Wait()
}

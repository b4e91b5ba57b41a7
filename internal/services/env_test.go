package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
	"github.com/stackgenie/stackgenie-backend/internal/data/repos/testutil"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/apierr"
	"github.com/stackgenie/stackgenie-backend/internal/platform/ctxutil"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type testEnv struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    testRepos
	projects ProjectService
	canvas   CanvasService
	webhooks WebhookService
}

type testRepos struct {
	users       repos.UserRepo
	tokens      repos.UserTokenRepo
	projects    repos.ProjectRepo
	schemas     repos.SchemaDesignRepo
	library     repos.ComponentDefinitionRepo
	webhooks    repos.WebhookRepo
	deployments repos.DeploymentRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := testRepos{
		users:       repos.NewUserRepo(db, log),
		tokens:      repos.NewUserTokenRepo(db, log),
		projects:    repos.NewProjectRepo(db, log),
		schemas:     repos.NewSchemaDesignRepo(db, log),
		library:     repos.NewComponentDefinitionRepo(db, log),
		webhooks:    repos.NewWebhookRepo(db, log),
		deployments: repos.NewDeploymentRepo(db, log),
	}
	webhooks := NewWebhookService(log, r.webhooks, &http.Client{Timeout: 2 * time.Second}, nil)
	t.Cleanup(webhooks.Close)
	projects := NewProjectService(db, log, r.projects, r.users, CanvasConfig{}, webhooks, nil)
	return &testEnv{
		db:       db,
		log:      log,
		repos:    r,
		projects: projects,
		canvas:   NewCanvasService(log, projects, nil),
		webhooks: webhooks,
	}
}

// asUser seeds a user and returns a context authenticated as them.
func (e *testEnv) asUser(t *testing.T, email string) (context.Context, *types.User) {
	t.Helper()
	u := testutil.SeedUser(t, context.Background(), e.db, email)
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: u.ID, Email: u.Email})
	return ctx, u
}

func statusOf(err error) int {
	if e, ok := apierr.As(err); ok {
		return e.Status
	}
	return 0
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error with status %d, got nil", status)
	}
	if got := statusOf(err); got != status {
		t.Fatalf("status=%d want %d (err=%v)", got, status, err)
	}
}

func wantKind(t *testing.T, err error, kind canvas.ErrorKind) {
	t.Helper()
	var ce *canvas.Error
	if !errors.As(err, &ce) || ce.Kind != kind {
		t.Fatalf("expected canvas %s error, got %v", kind, err)
	}
}

func dbcOf(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx}
}

package http

import (
	"bytes"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
	"github.com/stackgenie/stackgenie-backend/internal/data/repos/testutil"
	httpH "github.com/stackgenie/stackgenie-backend/internal/http/handlers"
	httpMW "github.com/stackgenie/stackgenie-backend/internal/http/middleware"
	"github.com/stackgenie/stackgenie-backend/internal/services"
)

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (a *apiClient) do(method, path string, body any) (int, envelope, *httptest.ResponseRecorder) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env, rec
}

func (a *apiClient) must(method, path string, body any, want int, out any) envelope {
	a.t.Helper()
	code, env, rec := a.do(method, path, body)
	if code != want {
		a.t.Fatalf("%s %s: status=%d want %d body=%s", method, path, code, want, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			a.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return env
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	users := repos.NewUserRepo(db, log)
	auth := services.NewAuthService(db, log, users, repos.NewUserTokenRepo(db, log), "test-secret", time.Hour, 24*time.Hour)
	webhooks := services.NewWebhookService(log, repos.NewWebhookRepo(db, log), &stdhttp.Client{Timeout: time.Second}, nil)
	t.Cleanup(webhooks.Close)
	projects := services.NewProjectService(db, log, repos.NewProjectRepo(db, log), users, services.CanvasConfig{}, webhooks, nil)
	deployments := services.NewDeploymentService(log, repos.NewDeploymentRepo(db, log), projects, webhooks,
		services.NewSimulatedProvisioner(0), services.DeploymentConfig{}, nil)
	t.Cleanup(deployments.Close)

	engine := NewRouter(RouterConfig{
		Log:               log,
		AuthHandler:       httpH.NewAuthHandler(log, auth),
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, auth),
		UserHandler:       httpH.NewUserHandler(log, auth),
		ProjectHandler:    httpH.NewProjectHandler(log, projects, services.NewGenerationService(log, nil, projects, services.CanvasConfig{}, nil)),
		CanvasHandler:     httpH.NewCanvasHandler(log, services.NewCanvasService(log, projects, nil)),
		SchemaHandler:     httpH.NewSchemaHandler(log, services.NewSchemaService(log, repos.NewSchemaDesignRepo(db, log), projects)),
		LibraryHandler:    httpH.NewLibraryHandler(log, services.NewLibraryService(log, repos.NewComponentDefinitionRepo(db, log), nil)),
		WebhookHandler:    httpH.NewWebhookHandler(log, webhooks),
		DeploymentHandler: httpH.NewDeploymentHandler(log, deployments),
		GenerateLimiter:   services.NewRateLimiter(log, nil, services.RateLimitConfig{Name: "generate", Limit: 1, Window: time.Minute}, nil),
		HealthHandler:     httpH.NewHealthHandler(db),
	})
	return &apiClient{t: t, engine: engine}
}

func (a *apiClient) signIn(email string) {
	a.t.Helper()
	a.must(stdhttp.MethodPost, "/api/auth/register", map[string]string{
		"name": "Builder", "email": email, "password": "hunter22",
	}, stdhttp.StatusCreated, nil)
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	a.must(stdhttp.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": "hunter22",
	}, stdhttp.StatusOK, &tokens)
	if tokens.AccessToken == "" {
		a.t.Fatalf("login returned no access token")
	}
	a.token = tokens.AccessToken
}

func TestHealthcheck(t *testing.T) {
	api := newTestAPI(t)
	code, _, rec := api.do(stdhttp.MethodGet, "/healthcheck", nil)
	if code != stdhttp.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)
	code, env, _ := api.do(stdhttp.MethodGet, "/api/projects", nil)
	if code != stdhttp.StatusUnauthorized || env.Success || env.Error == nil || env.Error.Code != "unauthorized" {
		t.Fatalf("status=%d env=%+v", code, env)
	}
	api.token = "not-a-jwt"
	if code, _, _ := api.do(stdhttp.MethodGet, "/api/projects", nil); code != stdhttp.StatusUnauthorized {
		t.Fatalf("bad token: status=%d", code)
	}
}

func TestPasswordRoutes(t *testing.T) {
	api := newTestAPI(t)
	api.signIn("pw@example.com")

	code, env, _ := api.do(stdhttp.MethodPut, "/api/auth/change-password", map[string]string{
		"currentPassword": "wrong-one", "newPassword": "rotated1",
	})
	if code != stdhttp.StatusUnauthorized || env.Error == nil || env.Error.Code != "invalid_credentials" {
		t.Fatalf("change-password(wrong): status=%d env=%+v", code, env)
	}
	api.must(stdhttp.MethodPut, "/api/auth/change-password", map[string]string{
		"currentPassword": "hunter22", "newPassword": "rotated1",
	}, stdhttp.StatusOK, nil)

	api.token = ""
	var forgot struct {
		ResetToken string `json:"resetToken"`
	}
	api.must(stdhttp.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "pw@example.com"}, stdhttp.StatusOK, &forgot)
	if forgot.ResetToken == "" {
		t.Fatalf("forgot-password: no token")
	}
	api.must(stdhttp.MethodPost, "/api/auth/reset-password/"+forgot.ResetToken, map[string]string{"password": "fresh-pw"}, stdhttp.StatusOK, nil)
	api.must(stdhttp.MethodPost, "/api/auth/reset-password/"+forgot.ResetToken, map[string]string{"password": "again-pw"}, stdhttp.StatusBadRequest, nil)
	api.must(stdhttp.MethodPost, "/api/auth/login", map[string]string{"email": "pw@example.com", "password": "fresh-pw"}, stdhttp.StatusOK, nil)
}

func TestCanvasEditingOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.signIn("http@example.com")

	var project struct {
		ProjectID string `json:"projectId"`
	}
	api.must(stdhttp.MethodPost, "/api/projects", map[string]string{"projectName": "Landing"}, stdhttp.StatusCreated, &project)
	if !strings.HasPrefix(project.ProjectID, "proj_") {
		t.Fatalf("projectId=%q", project.ProjectID)
	}
	base := "/api/projects/" + project.ProjectID

	type edit struct {
		Component *struct {
			ID string `json:"id"`
		} `json:"component"`
		Connection *struct {
			ID string `json:"id"`
		} `json:"connection"`
		Removed []struct {
			ID string `json:"id"`
		} `json:"removedConnections"`
	}
	var btn, card edit
	api.must(stdhttp.MethodPost, base+"/components", map[string]any{"type": "Button"}, stdhttp.StatusCreated, &btn)
	api.must(stdhttp.MethodPost, base+"/components", map[string]any{"type": "Card", "props": map[string]any{"text": "Plans"}}, stdhttp.StatusCreated, &card)

	var conn edit
	api.must(stdhttp.MethodPost, base+"/connections", map[string]string{
		"from": btn.Component.ID, "to": card.Component.ID, "type": "action",
	}, stdhttp.StatusCreated, &conn)

	code, env, _ := api.do(stdhttp.MethodPost, base+"/connections", map[string]string{
		"from": btn.Component.ID, "to": btn.Component.ID, "type": "data",
	})
	if code != stdhttp.StatusBadRequest || env.Error == nil || env.Error.Code != "self_loop" {
		t.Fatalf("self loop: status=%d env=%+v", code, env)
	}
	code, env, _ = api.do(stdhttp.MethodPatch, base+"/components/comp-missing", map[string]string{"text": "x"})
	if code != stdhttp.StatusNotFound || env.Error.Code != "not_found" {
		t.Fatalf("missing component: status=%d env=%+v", code, env)
	}

	var removed edit
	api.must(stdhttp.MethodDelete, base+"/components/"+card.Component.ID, nil, stdhttp.StatusOK, &removed)
	if len(removed.Removed) != 1 || removed.Removed[0].ID != conn.Connection.ID {
		t.Fatalf("cascade: %+v", removed.Removed)
	}

	var again struct {
		Deleted *bool `json:"deleted"`
	}
	api.must(stdhttp.MethodDelete, base+"/components/"+card.Component.ID, nil, stdhttp.StatusOK, &again)
	if again.Deleted == nil || *again.Deleted {
		t.Fatalf("repeat delete: deleted=%v", again.Deleted)
	}
	api.must(stdhttp.MethodDelete, base+"/connections/"+conn.Connection.ID, nil, stdhttp.StatusOK, &again)
	if again.Deleted == nil || *again.Deleted {
		t.Fatalf("disconnect cascaded: deleted=%v", again.Deleted)
	}

	var report struct {
		Valid bool `json:"valid"`
	}
	api.must(stdhttp.MethodGet, base+"/validate", nil, stdhttp.StatusOK, &report)
	if !report.Valid {
		t.Fatalf("validate: invalid after cascade")
	}

	code, _, rec := api.do(stdhttp.MethodGet, base+"/code", nil)
	if code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "Click me") {
		t.Fatalf("code: status=%d body=%s", code, rec.Body.String())
	}

	api.must(stdhttp.MethodDelete, base, nil, stdhttp.StatusOK, nil)
	api.must(stdhttp.MethodGet, base, nil, stdhttp.StatusNotFound, nil)
}

func TestSaveRejectsCorruptDocument(t *testing.T) {
	api := newTestAPI(t)
	api.signIn("corrupt@example.com")
	api.must(stdhttp.MethodPost, "/api/projects", map[string]string{"projectId": "proj_doc", "projectName": "Doc"}, stdhttp.StatusCreated, nil)

	code, env, _ := api.do(stdhttp.MethodPut, "/api/projects/proj_doc", map[string]any{
		"components":  []map[string]any{{"id": "comp-a", "type": "Text"}},
		"connections": []map[string]any{{"id": "conn-1", "from": "comp-a", "to": "comp-gone", "type": "data"}},
	})
	if code != stdhttp.StatusUnprocessableEntity || env.Error == nil || env.Error.Code != "corrupt_document" {
		t.Fatalf("status=%d env=%+v", code, env)
	}
	var data struct {
		Violations []struct {
			Kind string `json:"kind"`
		} `json:"violations"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || len(data.Violations) == 0 {
		t.Fatalf("violations missing: %s", env.Data)
	}
}

func TestGenerateIsRateLimited(t *testing.T) {
	api := newTestAPI(t)
	api.signIn("gen@example.com")

	code, env, _ := api.do(stdhttp.MethodPost, "/api/projects/generate", map[string]string{"prompt": "a shop"})
	if code != stdhttp.StatusServiceUnavailable || env.Error == nil || env.Error.Code != "upstream_unavailable" {
		t.Fatalf("first: status=%d env=%+v", code, env)
	}
	code, env, rec := api.do(stdhttp.MethodPost, "/api/projects/generate", map[string]string{"prompt": "a shop"})
	if code != stdhttp.StatusTooManyRequests || env.Error.Code != "rate_limited" {
		t.Fatalf("second: status=%d env=%+v", code, env)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After missing")
	}
}

func TestDeploymentRoutes(t *testing.T) {
	api := newTestAPI(t)
	api.signIn("ship@example.com")
	api.must(stdhttp.MethodPost, "/api/projects", map[string]string{"projectId": "proj_ship", "projectName": "Ship"}, stdhttp.StatusCreated, nil)

	var d struct {
		ID string `json:"id"`
	}
	api.must(stdhttp.MethodPost, "/api/deployments", map[string]any{
		"projectId": "proj_ship",
		"frontend":  map[string]any{"platform": "netlify"},
		"backend":   map[string]any{"platform": "heroku", "database": "mongodb"},
	}, stdhttp.StatusAccepted, &d)
	if d.ID == "" {
		t.Fatalf("deployment id missing")
	}
	api.must(stdhttp.MethodGet, "/api/deployments/"+d.ID+"/status", nil, stdhttp.StatusOK, nil)
	api.must(stdhttp.MethodGet, "/api/deployments/not-a-uuid/status", nil, stdhttp.StatusBadRequest, nil)

	var list []json.RawMessage
	api.must(stdhttp.MethodGet, "/api/deployments/project/proj_ship", nil, stdhttp.StatusOK, &list)
	if len(list) != 1 {
		t.Fatalf("list: %d", len(list))
	}
	api.must(stdhttp.MethodPost, "/api/deployments", map[string]any{"projectId": "proj_ship"}, stdhttp.StatusBadRequest, nil)
}

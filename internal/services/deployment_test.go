package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/httpx"
)

// scriptedProvisioner fails the listed targets a fixed number of times and
// blocks on gate, when set, before answering.
type scriptedProvisioner struct {
	mu       sync.Mutex
	failures map[string]int
	fatal    map[string]bool
	calls    map[string]int
	gate     chan struct{}
}

func (p *scriptedProvisioner) Provision(ctx context.Context, track, target, projectID string) (string, error) {
	if p.gate != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-p.gate:
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[target]++
	if p.fatal[target] {
		return "", errors.New(target + " rejected the build")
	}
	if p.failures[target] > 0 {
		p.failures[target]--
		return "", &httpx.StatusError{Service: target, StatusCode: http.StatusBadGateway}
	}
	return NewSimulatedProvisioner(0).Provision(ctx, track, target, projectID)
}

func (p *scriptedProvisioner) callsFor(target string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[target]
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, ownerID uuid.UUID, projectID, event string, data any) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingDispatcher) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func deployInput(projectID string) DeploymentInput {
	return DeploymentInput{
		ProjectID: projectID,
		Frontend:  &types.FrontendTarget{Platform: "vercel", CDNEnabled: true},
		Backend:   &types.BackendTarget{Platform: "Render", Database: "postgresql"},
	}
}

func newTestDeployments(t *testing.T, env *testEnv, prov Provisioner, events EventDispatcher) DeploymentService {
	t.Helper()
	svc := NewDeploymentService(env.log, env.repos.deployments, env.projects, events, prov, DeploymentConfig{StepRetries: 2}, nil)
	t.Cleanup(svc.Close)
	return svc
}

func TestDeploymentCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.asUser(t, "deploy@example.com")
	if _, err := env.projects.Create(ctx, ProjectInput{ProjectID: "proj_deploy", ProjectName: "Deploy"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	prov := &scriptedProvisioner{failures: map[string]int{"Render": 1}}
	events := &recordingDispatcher{}
	svc := newTestDeployments(t, env, prov, events)

	d, err := svc.Create(ctx, deployInput("proj_deploy"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Frontend.Data().Platform != "Vercel" || d.Backend.Data().Database != "PostgreSQL" {
		t.Fatalf("Create: targets not normalized: %+v %+v", d.Frontend.Data(), d.Backend.Data())
	}
	svc.Wait()

	got, err := svc.Status(ctx, d.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Status != types.DeploymentCompleted || got.StartedAt == nil || got.CompletedAt == nil {
		t.Fatalf("Status: status=%q started=%v completed=%v", got.Status, got.StartedAt, got.CompletedAt)
	}
	fe, be := got.Frontend.Data(), got.Backend.Data()
	if fe.Status != types.DeploymentCompleted || fe.URL != "https://proj-deploy.vercel.app" {
		t.Fatalf("frontend=%+v", fe)
	}
	if be.Status != types.DeploymentCompleted || be.URL != "https://proj-deploy.onrender.com" {
		t.Fatalf("backend=%+v", be)
	}
	if prov.callsFor("Render") != 2 || prov.callsFor("PostgreSQL") != 1 {
		t.Fatalf("calls: render=%d postgres=%d", prov.callsFor("Render"), prov.callsFor("PostgreSQL"))
	}

	logs, err := svc.Logs(ctx, d.ID)
	if err != nil || len(logs) < 5 {
		t.Fatalf("Logs: n=%d err=%v", len(logs), err)
	}
	if logs[len(logs)-1].Message != "Deployment completed" {
		t.Fatalf("Logs: last=%q", logs[len(logs)-1].Message)
	}

	list, err := svc.ListByProject(ctx, "proj_deploy")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByProject: n=%d err=%v", len(list), err)
	}
	if evs := events.snapshot(); len(evs) != 1 || evs[0] != EventDeploymentCompleted {
		t.Fatalf("events=%v", evs)
	}

	if _, err := svc.Cancel(ctx, d.ID); err == nil {
		t.Fatalf("Cancel: completed deployment canceled")
	} else {
		wantStatus(t, err, http.StatusBadRequest)
	}
}

func TestDeploymentFails(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.asUser(t, "deployfail@example.com")
	if _, err := env.projects.Create(ctx, ProjectInput{ProjectID: "proj_fail", ProjectName: "Fail"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	prov := &scriptedProvisioner{fatal: map[string]bool{"Vercel": true}}
	events := &recordingDispatcher{}
	svc := newTestDeployments(t, env, prov, events)

	d, err := svc.Create(ctx, deployInput("proj_fail"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.Wait()

	got, err := svc.Status(ctx, d.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Status != types.DeploymentFailed || got.Error == "" {
		t.Fatalf("Status: status=%q error=%q", got.Status, got.Error)
	}
	if got.Frontend.Data().Status != types.DeploymentFailed {
		t.Fatalf("frontend=%+v", got.Frontend.Data())
	}
	if prov.callsFor("Vercel") != 1 {
		t.Fatalf("permanent failure retried: %d calls", prov.callsFor("Vercel"))
	}
	if evs := events.snapshot(); len(evs) != 1 || evs[0] != EventDeploymentFailed {
		t.Fatalf("events=%v", evs)
	}
}

func TestDeploymentCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.asUser(t, "deploycancel@example.com")
	if _, err := env.projects.Create(ctx, ProjectInput{ProjectID: "proj_cancel", ProjectName: "Cancel"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	prov := &scriptedProvisioner{gate: make(chan struct{})}
	events := &recordingDispatcher{}
	svc := newTestDeployments(t, env, prov, events)

	d, err := svc.Create(ctx, deployInput("proj_cancel"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	canceled, err := svc.Cancel(ctx, d.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != types.DeploymentCanceled {
		t.Fatalf("Cancel: status=%q", canceled.Status)
	}

	done := make(chan struct{})
	go func() { svc.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("runner did not stop after cancel")
	}

	got, err := svc.Status(ctx, d.ID)
	if err != nil || got.Status != types.DeploymentCanceled {
		t.Fatalf("Status: %+v err=%v", got, err)
	}
	if len(events.snapshot()) != 0 {
		t.Fatalf("canceled deployment emitted %v", events.snapshot())
	}
}

func TestDeploymentCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.asUser(t, "deployval@example.com")
	if _, err := env.projects.Create(ctx, ProjectInput{ProjectID: "proj_val", ProjectName: "Val"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc := newTestDeployments(t, env, &scriptedProvisioner{}, nil)

	noBackend := deployInput("proj_val")
	noBackend.Backend = nil
	badPlatform := deployInput("proj_val")
	badPlatform.Frontend = &types.FrontendTarget{Platform: "GitHub Pages"}
	badDB := deployInput("proj_val")
	badDB.Backend = &types.BackendTarget{Platform: "heroku", Database: "Oracle"}

	for name, in := range map[string]DeploymentInput{
		"missing backend": noBackend,
		"bad platform":    badPlatform,
		"bad database":    badDB,
		"missing project": {Frontend: noBackend.Frontend, Backend: badDB.Backend},
	} {
		if _, err := svc.Create(ctx, in); err == nil {
			t.Fatalf("%s: accepted", name)
		} else {
			wantStatus(t, err, http.StatusBadRequest)
		}
	}

	other, _ := env.asUser(t, "deploy-other@example.com")
	if _, err := svc.Create(other, deployInput("proj_val")); err == nil {
		t.Fatalf("Create: non-owner deployed the project")
	} else {
		wantStatus(t, err, http.StatusForbidden)
	}
}

package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
)

type receivedHook struct {
	event      string
	deliveryID string
	auth       string
	body       webhookPayload
}

type hookReceiver struct {
	*httptest.Server
	mu       sync.Mutex
	received []receivedHook
	failures atomic.Int32
}

// newHookReceiver answers 503 to the first failFirst requests and 200 after.
func newHookReceiver(t *testing.T, failFirst int32) *hookReceiver {
	t.Helper()
	hr := &hookReceiver{}
	hr.failures.Store(failFirst)
	hr.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var p webhookPayload
		_ = json.Unmarshal(raw, &p)
		hr.mu.Lock()
		hr.received = append(hr.received, receivedHook{
			event:      r.Header.Get("X-Webhook-Event"),
			deliveryID: r.Header.Get("X-Webhook-Delivery"),
			auth:       r.Header.Get("Authorization"),
			body:       p,
		})
		hr.mu.Unlock()
		if hr.failures.Add(-1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(hr.Close)
	return hr
}

func (hr *hookReceiver) hits() []receivedHook {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	return append([]receivedHook(nil), hr.received...)
}

func TestWebhookRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.asUser(t, "hooks@example.com")

	cases := []struct {
		name string
		in   WebhookInput
	}{
		{"missing url", WebhookInput{Name: strPtr("a")}},
		{"relative url", WebhookInput{Name: strPtr("a"), URL: strPtr("/hook")}},
		{"bad method", WebhookInput{Name: strPtr("a"), URL: strPtr("https://example.com/h"), Method: strPtr("TRACE")}},
	}
	for _, tc := range cases {
		if _, err := env.webhooks.Register(ctx, tc.in); err == nil {
			t.Fatalf("%s: accepted", tc.name)
		} else {
			wantStatus(t, err, http.StatusBadRequest)
		}
	}

	retries, interval := 5, 250
	hook, err := env.webhooks.Register(ctx, WebhookInput{
		Name:        strPtr("ci"),
		URL:         strPtr("https://example.com/hook"),
		Method:      strPtr("put"),
		ProjectID:   strPtr("proj_a"),
		RetryConfig: &WebhookRetryConfig{MaxRetries: &retries, RetryInterval: &interval},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if hook.Method != http.MethodPut || hook.MaxRetries != 5 || hook.RetryIntervalMS != 250 || !hook.IsActive {
		t.Fatalf("Register: %+v", hook)
	}
	defaults, err := env.webhooks.Register(ctx, WebhookInput{Name: strPtr("d"), URL: strPtr("https://example.com/d")})
	if err != nil {
		t.Fatalf("Register(defaults): %v", err)
	}
	if defaults.Method != http.MethodPost || defaults.MaxRetries != defaultWebhookRetries {
		t.Fatalf("Register(defaults): %+v", defaults)
	}

	list, err := env.webhooks.List(ctx, "proj_a")
	if err != nil || len(list) != 1 || list[0].ID != hook.ID {
		t.Fatalf("List(proj_a): n=%d err=%v", len(list), err)
	}
	all, err := env.webhooks.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("List: n=%d err=%v", len(all), err)
	}

	inactive := false
	updated, err := env.webhooks.Update(ctx, hook.ID, WebhookInput{IsActive: &inactive})
	if err != nil || updated.IsActive {
		t.Fatalf("Update: hook=%+v err=%v", updated, err)
	}

	other, _ := env.asUser(t, "hooks-other@example.com")
	if err := env.webhooks.Delete(other, hook.ID); err == nil {
		t.Fatalf("Delete: other user removed the webhook")
	} else {
		wantStatus(t, err, http.StatusNotFound)
	}
	if err := env.webhooks.Delete(ctx, hook.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestWebhookDispatchRetriesAndRecordsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx, user := env.asUser(t, "dispatch@example.com")
	recv := newHookReceiver(t, 2)

	retries, interval := 3, 1
	hook, err := env.webhooks.Register(ctx, WebhookInput{
		Name:          strPtr("updates"),
		URL:           strPtr(recv.URL),
		Events:        &[]string{EventProjectUpdated},
		Headers:       &map[string]string{"Authorization": "Bearer abc"},
		ProjectID:     strPtr("proj_hooked"),
		MaxRetries:    &retries,
		RetryInterval: &interval,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := env.webhooks.Register(ctx, WebhookInput{
		Name:   strPtr("deploys only"),
		URL:    strPtr(recv.URL),
		Events: &[]string{EventDeploymentCompleted},
	}); err != nil {
		t.Fatalf("Register(second): %v", err)
	}

	env.webhooks.Dispatch(ctx, user.ID, "proj_hooked", EventProjectUpdated, map[string]any{"projectId": "proj_hooked"})
	env.webhooks.Wait()

	hits := recv.hits()
	if len(hits) != 3 {
		t.Fatalf("deliveries=%d want 3 (two 503s then success)", len(hits))
	}
	for _, h := range hits {
		if h.event != EventProjectUpdated || h.body.Event != EventProjectUpdated {
			t.Fatalf("unexpected event %q/%q", h.event, h.body.Event)
		}
		if h.deliveryID == "" || h.deliveryID != hits[0].deliveryID {
			t.Fatalf("retries must reuse the delivery id: %q vs %q", h.deliveryID, hits[0].deliveryID)
		}
		if h.auth != "Bearer abc" {
			t.Fatalf("custom header missing: %q", h.auth)
		}
	}

	stored, err := env.repos.webhooks.GetByID(dbctx.Context{Ctx: ctx}, hook.ID)
	if err != nil || stored.LastStatus == nil {
		t.Fatalf("GetByID: hook=%+v err=%v", stored, err)
	}
	if st := stored.LastStatus.Data(); !st.Success || st.StatusCode != http.StatusOK {
		t.Fatalf("last status=%+v", st)
	}
}

func TestWebhookDispatchGivesUp(t *testing.T) {
	env := newTestEnv(t)
	ctx, user := env.asUser(t, "giveup@example.com")
	recv := newHookReceiver(t, 100)

	retries, interval := 1, 1
	hook, err := env.webhooks.Register(ctx, WebhookInput{
		Name:          strPtr("flaky"),
		URL:           strPtr(recv.URL),
		MaxRetries:    &retries,
		RetryInterval: &interval,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	env.webhooks.Dispatch(ctx, user.ID, "proj_any", EventProjectDeleted, nil)
	env.webhooks.Wait()

	if n := len(recv.hits()); n != 2 {
		t.Fatalf("deliveries=%d want 2", n)
	}
	stored, err := env.repos.webhooks.GetByID(dbctx.Context{Ctx: ctx}, hook.ID)
	if err != nil || stored.LastStatus == nil {
		t.Fatalf("GetByID: err=%v", err)
	}
	if st := stored.LastStatus.Data(); st.Success || st.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("last status=%+v", st)
	}
}

func TestWebhookTestEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.asUser(t, "pinger@example.com")
	recv := newHookReceiver(t, 0)

	hook, err := env.webhooks.Register(ctx, WebhookInput{Name: strPtr("ping"), URL: strPtr(recv.URL)})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	status, err := env.webhooks.Test(ctx, hook.ID)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if !status.Success || status.Message != "Test successful" {
		t.Fatalf("Test: %+v", status)
	}
	hits := recv.hits()
	if len(hits) != 1 || hits[0].body.Event != "test" {
		t.Fatalf("Test: hits=%+v", hits)
	}
	data, _ := hits[0].body.Data.(map[string]any)
	if data["message"] != "This is a test webhook payload" {
		t.Fatalf("Test: payload=%+v", hits[0].body.Data)
	}

	down := newHookReceiver(t, 100)
	broken, err := env.webhooks.Register(ctx, WebhookInput{Name: strPtr("down"), URL: strPtr(down.URL)})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := env.webhooks.Test(ctx, broken.ID); err == nil {
		t.Fatalf("Test: failing receiver reported success")
	} else {
		wantStatus(t, err, http.StatusBadGateway)
	}
	if n := len(down.hits()); n != 1 {
		t.Fatalf("Test: must not retry, got %d requests", n)
	}
	stored, _ := env.repos.webhooks.GetByID(dbctx.Context{Ctx: ctx}, broken.ID)
	if stored == nil || stored.LastStatus == nil || stored.LastStatus.Data().Success {
		t.Fatalf("Test: failure not recorded")
	}
}

func TestProjectEditsEmitWebhooks(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.asUser(t, "events@example.com")
	recv := newHookReceiver(t, 0)
	if _, err := env.webhooks.Register(ctx, WebhookInput{
		Name:      strPtr("all"),
		URL:       strPtr(recv.URL),
		ProjectID: strPtr("proj_events"),
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := env.projects.Create(ctx, ProjectInput{ProjectID: "proj_events", ProjectName: "Events"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.canvas.AddComponent(ctx, "proj_events", "Text", nil); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := env.projects.Delete(ctx, "proj_events"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	env.webhooks.Wait()

	var events []string
	for _, h := range recv.hits() {
		events = append(events, h.event)
	}
	if len(events) != 2 {
		t.Fatalf("events=%v want [project.updated project.deleted]", events)
	}
	seen := map[string]bool{}
	for _, e := range events {
		seen[e] = true
	}
	if !seen[EventProjectUpdated] || !seen[EventProjectDeleted] {
		t.Fatalf("events=%v", events)
	}
}

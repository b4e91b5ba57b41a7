package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
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
	EventDeploymentCompleted = "deployment.completed"
	EventDeploymentFailed    = "deployment.failed"
	eventTest                = "test"

	defaultWebhookRetries       = 3
	defaultWebhookRetryInterval = 1000
)

var webhookMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

type WebhookRetryConfig struct {
	MaxRetries    *int `json:"maxRetries"`
	RetryInterval *int `json:"retryInterval"`
}

// WebhookInput is used for both register and update. Nil fields are left alone
// on update and defaulted on register.
type WebhookInput struct {
	Name          *string             `json:"name"`
	URL           *string             `json:"url"`
	Description   *string             `json:"description"`
	Events        *[]string           `json:"events"`
	Headers       *map[string]string  `json:"headers"`
	Method        *string             `json:"method"`
	ProjectID     *string             `json:"projectId"`
	IsActive      *bool               `json:"isActive"`
	MaxRetries    *int                `json:"maxRetries"`
	RetryInterval *int                `json:"retryInterval"`
	RetryConfig   *WebhookRetryConfig `json:"retryConfig"`
}

type webhookPayload struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// WebhookService manages subscriptions and delivers events to them.
type WebhookService interface {
	EventDispatcher
	Register(ctx context.Context, in WebhookInput) (*types.Webhook, error)
	List(ctx context.Context, projectID string) ([]*types.Webhook, error)
	Update(ctx context.Context, id uuid.UUID, in WebhookInput) (*types.Webhook, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Test sends one sample payload without retries and records the outcome.
	Test(ctx context.Context, id uuid.UUID) (*types.DeliveryStatus, error)
	// Wait blocks until every in-flight delivery has finished.
	Wait()
	Close()
}

type webhookService struct {
	log     *logger.Logger
	repo    repos.WebhookRepo
	client  *http.Client
	metrics *observability.Metrics

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWebhookService(log *logger.Logger, repo repos.WebhookRepo, client *http.Client, metrics *observability.Metrics) WebhookService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &webhookService{
		log:     log.With("service", "WebhookService"),
		repo:    repo,
		client:  client,
		metrics: metrics,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apierr.BadRequest("invalid_webhook", fmt.Errorf("url must be an absolute http(s) URL"))
	}
	return nil
}

func (in WebhookInput) retries() (*int, *int) {
	maxRetries, interval := in.MaxRetries, in.RetryInterval
	if in.RetryConfig != nil {
		if maxRetries == nil {
			maxRetries = in.RetryConfig.MaxRetries
		}
		if interval == nil {
			interval = in.RetryConfig.RetryInterval
		}
	}
	return maxRetries, interval
}

// apply copies the set fields of in onto hook and validates the result.
func (in WebhookInput) apply(hook *types.Webhook) error {
	if in.Name != nil {
		hook.Name = strings.TrimSpace(*in.Name)
	}
	if in.URL != nil {
		hook.URL = strings.TrimSpace(*in.URL)
	}
	if in.Description != nil {
		hook.Description = *in.Description
	}
	if in.Events != nil {
		events := make([]string, 0, len(*in.Events))
		for _, e := range *in.Events {
			if e = strings.TrimSpace(e); e != "" {
				events = append(events, e)
			}
		}
		hook.Events = datatypes.JSONSlice[string](events)
	}
	if in.Headers != nil {
		hook.Headers = datatypes.NewJSONType(*in.Headers)
	}
	if in.Method != nil {
		hook.Method = strings.ToUpper(strings.TrimSpace(*in.Method))
	}
	if in.ProjectID != nil {
		hook.ProjectID = strings.TrimSpace(*in.ProjectID)
	}
	if in.IsActive != nil {
		hook.IsActive = *in.IsActive
	}
	maxRetries, interval := in.retries()
	if maxRetries != nil {
		hook.MaxRetries = *maxRetries
	}
	if interval != nil {
		hook.RetryIntervalMS = *interval
	}

	if hook.Name == "" || hook.URL == "" {
		return apierr.BadRequest("invalid_webhook", fmt.Errorf("name and url are required"))
	}
	if err := validateWebhookURL(hook.URL); err != nil {
		return err
	}
	if !webhookMethods[hook.Method] {
		return apierr.BadRequest("invalid_webhook", fmt.Errorf("unsupported method %q", hook.Method))
	}
	if hook.MaxRetries < 0 || hook.MaxRetries > 10 {
		return apierr.BadRequest("invalid_webhook", fmt.Errorf("maxRetries must be between 0 and 10"))
	}
	if hook.RetryIntervalMS < 0 {
		return apierr.BadRequest("invalid_webhook", fmt.Errorf("retryInterval must not be negative"))
	}
	return nil
}

func (ws *webhookService) Register(ctx context.Context, in WebhookInput) (*types.Webhook, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	hook := &types.Webhook{
		OwnerID:         ownerID,
		Method:          http.MethodPost,
		IsActive:        true,
		MaxRetries:      defaultWebhookRetries,
		RetryIntervalMS: defaultWebhookRetryInterval,
		Events:          datatypes.JSONSlice[string]{},
		Headers:         datatypes.NewJSONType(map[string]string{}),
	}
	if err := in.apply(hook); err != nil {
		return nil, err
	}
	created, err := ws.repo.Create(dbctx.Context{Ctx: ctx}, hook)
	if err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	ws.log.Info("Webhook registered", "webhook_id", created.ID, "project_id", created.ProjectID)
	return created, nil
}

func (ws *webhookService) List(ctx context.Context, projectID string) ([]*types.Webhook, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	hooks, err := ws.repo.ListByOwner(dbctx.Context{Ctx: ctx}, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return hooks, nil
	}
	out := hooks[:0]
	for _, h := range hooks {
		if h.ProjectID == projectID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (ws *webhookService) owned(ctx context.Context, id uuid.UUID) (*types.Webhook, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	hook, err := ws.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, fmt.Errorf("load webhook: %w", err)
	}
	if hook == nil || hook.OwnerID != ownerID {
		return nil, apierr.NotFound("webhook_not_found", fmt.Errorf("webhook %s not found", id))
	}
	return hook, nil
}

func (ws *webhookService) Update(ctx context.Context, id uuid.UUID, in WebhookInput) (*types.Webhook, error) {
	hook, err := ws.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(hook); err != nil {
		return nil, err
	}
	if err := ws.repo.Save(dbctx.Context{Ctx: ctx}, hook); err != nil {
		return nil, fmt.Errorf("save webhook: %w", err)
	}
	return hook, nil
}

func (ws *webhookService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := ws.owned(ctx, id); err != nil {
		return err
	}
	if err := ws.repo.SoftDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

func (ws *webhookService) Test(ctx context.Context, id uuid.UUID) (*types.DeliveryStatus, error) {
	hook, err := ws.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	payload := webhookPayload{
		Event:     eventTest,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"message": "This is a test webhook payload"},
	}
	status := ws.deliver(ctx, hook, payload, httpx.RetryPolicy{MaxRetries: 0})
	if status.Success {
		status.Message = "Test successful"
	}
	ws.recordStatus(ctx, hook.ID, status)
	if !status.Success {
		return &status, apierr.New(http.StatusBadGateway, "webhook_test_failed", fmt.Errorf("webhook test failed: %s", status.Message))
	}
	return &status, nil
}

// Dispatch looks up the owner's active webhooks for projectID and delivers the
// event to every subscriber in the background. It never blocks the caller.
func (ws *webhookService) Dispatch(ctx context.Context, ownerID uuid.UUID, projectID, event string, data any) {
	if ws.baseCtx.Err() != nil {
		return
	}
	hooks, err := ws.repo.ListActive(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, ownerID, projectID)
	if err != nil {
		ws.log.Warn("Webhook lookup failed", "event", event, "project_id", projectID, "error", err)
		return
	}
	payload := webhookPayload{Event: event, Timestamp: time.Now().UTC(), Data: data}
	for _, h := range hooks {
		if !h.Subscribed(event) {
			continue
		}
		hook := h
		ws.wg.Add(1)
		go func() {
			defer ws.wg.Done()
			policy := httpx.RetryPolicy{
				MaxRetries: hook.MaxRetries,
				Initial:    time.Duration(hook.RetryIntervalMS) * time.Millisecond,
				Max:        30 * time.Second,
			}
			status := ws.deliver(ws.baseCtx, hook, payload, policy)
			ws.recordStatus(ws.baseCtx, hook.ID, status)
		}()
	}
}

// deliver sends payload until it succeeds or the policy gives up. Every
// attempt carries the same delivery id so receivers can drop repeats.
func (ws *webhookService) deliver(ctx context.Context, hook *types.Webhook, payload webhookPayload, policy httpx.RetryPolicy) types.DeliveryStatus {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.DeliveryStatus{Success: false, Message: err.Error(), Timestamp: time.Now().UTC()}
	}
	if policy.Initial <= 0 {
		policy.Initial = time.Millisecond
	}
	deliveryID := uuid.NewString()
	log := ws.log.With("webhook_id", hook.ID, "event", payload.Event, "delivery_id", deliveryID)

	code, err := httpx.Retry(ctx, policy, func() (int, error) {
		return ws.send(ctx, hook, payload.Event, deliveryID, body)
	}, func(err error, wait time.Duration) {
		log.Debug("Webhook delivery retry", "error", err, "wait", wait)
	})

	status := types.DeliveryStatus{StatusCode: code, Timestamp: time.Now().UTC()}
	if err != nil {
		if sc := httpx.StatusCode(err); sc != 0 {
			status.StatusCode = sc
		}
		status.Message = err.Error()
		ws.metrics.IncWebhookDelivery(payload.Event, "failed")
		log.Warn("Webhook delivery failed", "error", err)
		return status
	}
	status.Success = true
	status.Message = "Webhook sent successfully"
	ws.metrics.IncWebhookDelivery(payload.Event, "ok")
	return status
}

func (ws *webhookService) send(ctx context.Context, hook *types.Webhook, event, deliveryID string, body []byte) (int, error) {
	var reader io.Reader
	if hook.Method != http.MethodGet {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, hook.Method, hook.URL, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", deliveryID)
	for k, v := range hook.Headers.Data() {
		req.Header.Set(k, v)
	}
	resp, err := ws.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &httpx.StatusError{
			Service:    "webhook",
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
			RetryAfter: httpx.RetryAfterDuration(resp, 0, 30*time.Second),
		}
	}
	return resp.StatusCode, nil
}

func (ws *webhookService) recordStatus(ctx context.Context, id uuid.UUID, status types.DeliveryStatus) {
	if err := ws.repo.UpdateLastStatus(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, id, status); err != nil {
		ws.log.Warn("Recording webhook status failed", "webhook_id", id, "error", err)
	}
}

func (ws *webhookService) Wait() {
	ws.wg.Wait()
}

// Close stops retries in flight and waits for their goroutines to exit.
func (ws *webhookService) Close() {
	ws.cancel()
	ws.wg.Wait()
}

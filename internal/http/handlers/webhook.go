package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/http/response"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/services"
)

type WebhookHandler struct {
	log      *logger.Logger
	webhooks services.WebhookService
}

func NewWebhookHandler(log *logger.Logger, webhooks services.WebhookService) *WebhookHandler {
	return &WebhookHandler{log: log.With("handler", "WebhookHandler"), webhooks: webhooks}
}

func webhookID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_webhook_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/webhooks/register
func (wh *WebhookHandler) Register(c *gin.Context) {
	var req services.WebhookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	hook, err := wh.webhooks.Register(c.Request.Context(), req)
	if err != nil {
		respondErr(c, wh.log, "register_webhook_failed", err)
		return
	}
	response.RespondCreated(c, "Webhook registered successfully", hook)
}

// GET /api/webhooks/list?projectId=
func (wh *WebhookHandler) List(c *gin.Context) {
	list, err := wh.webhooks.List(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		respondErr(c, wh.log, "list_webhooks_failed", err)
		return
	}
	if list == nil {
		list = []*types.Webhook{}
	}
	response.RespondOK(c, list)
}

// PUT /api/webhooks/:id
func (wh *WebhookHandler) Update(c *gin.Context) {
	id, ok := webhookID(c)
	if !ok {
		return
	}
	var req services.WebhookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	hook, err := wh.webhooks.Update(c.Request.Context(), id, req)
	if err != nil {
		respondErr(c, wh.log, "update_webhook_failed", err)
		return
	}
	response.RespondOK(c, hook)
}

// DELETE /api/webhooks/:id
func (wh *WebhookHandler) Delete(c *gin.Context) {
	id, ok := webhookID(c)
	if !ok {
		return
	}
	if err := wh.webhooks.Delete(c.Request.Context(), id); err != nil {
		respondErr(c, wh.log, "delete_webhook_failed", err)
		return
	}
	response.RespondMessage(c, "Webhook deleted successfully")
}

// POST /api/webhooks/test/:id
// A failed test delivery still reports the recorded delivery status alongside the error.
func (wh *WebhookHandler) Test(c *gin.Context) {
	id, ok := webhookID(c)
	if !ok {
		return
	}
	status, err := wh.webhooks.Test(c.Request.Context(), id)
	if err != nil {
		if status == nil {
			respondErr(c, wh.log, "webhook_test_failed", err)
			return
		}
		code, errCode := statusFor(err)
		c.JSON(code, response.Envelope{
			Success: false,
			Message: "Webhook test failed",
			Data:    status,
			Error:   &response.APIError{Message: err.Error(), Code: errCode},
		})
		return
	}
	c.JSON(http.StatusOK, response.Envelope{Success: true, Message: status.Message, Data: status})
}

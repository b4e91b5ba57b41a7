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

type DeploymentHandler struct {
	log         *logger.Logger
	deployments services.DeploymentService
}

func NewDeploymentHandler(log *logger.Logger, deployments services.DeploymentService) *DeploymentHandler {
	return &DeploymentHandler{log: log.With("handler", "DeploymentHandler"), deployments: deployments}
}

func deploymentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("deploymentId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_deployment_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/deployments
func (dh *DeploymentHandler) Create(c *gin.Context) {
	var req services.DeploymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	d, err := dh.deployments.Create(c.Request.Context(), req)
	if err != nil {
		respondErr(c, dh.log, "create_deployment_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, response.Envelope{Success: true, Message: "Deployment started", Data: d})
}

// GET /api/deployments/:deploymentId/status
func (dh *DeploymentHandler) Status(c *gin.Context) {
	id, ok := deploymentID(c)
	if !ok {
		return
	}
	d, err := dh.deployments.Status(c.Request.Context(), id)
	if err != nil {
		respondErr(c, dh.log, "load_deployment_failed", err)
		return
	}
	response.RespondOK(c, d)
}

// GET /api/deployments/project/:projectId
func (dh *DeploymentHandler) ListByProject(c *gin.Context) {
	list, err := dh.deployments.ListByProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondErr(c, dh.log, "list_deployments_failed", err)
		return
	}
	if list == nil {
		list = []*types.Deployment{}
	}
	response.RespondOK(c, list)
}

// POST /api/deployments/:deploymentId/cancel
func (dh *DeploymentHandler) Cancel(c *gin.Context) {
	id, ok := deploymentID(c)
	if !ok {
		return
	}
	d, err := dh.deployments.Cancel(c.Request.Context(), id)
	if err != nil {
		respondErr(c, dh.log, "cancel_deployment_failed", err)
		return
	}
	c.JSON(http.StatusOK, response.Envelope{Success: true, Message: "Deployment canceled", Data: d})
}

// GET /api/deployments/:deploymentId/logs
func (dh *DeploymentHandler) Logs(c *gin.Context) {
	id, ok := deploymentID(c)
	if !ok {
		return
	}
	logs, err := dh.deployments.Logs(c.Request.Context(), id)
	if err != nil {
		respondErr(c, dh.log, "load_logs_failed", err)
		return
	}
	if logs == nil {
		logs = []types.DeploymentLog{}
	}
	response.RespondOK(c, logs)
}

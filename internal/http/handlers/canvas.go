package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
	"github.com/stackgenie/stackgenie-backend/internal/http/response"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/services"
)

// CanvasHandler exposes single graph edits on a stored project.
type CanvasHandler struct {
	log    *logger.Logger
	canvas services.CanvasService
}

func NewCanvasHandler(log *logger.Logger, canvasService services.CanvasService) *CanvasHandler {
	return &CanvasHandler{log: log.With("handler", "CanvasHandler"), canvas: canvasService}
}

// GET /api/component-types
func (ch *CanvasHandler) ComponentTypes(c *gin.Context) {
	response.RespondOK(c, ch.canvas.ComponentTypes())
}

// POST /api/projects/:projectId/components
// body: { "type": "Button", "props": { "text": "...", "position": {...} } }
func (ch *CanvasHandler) AddComponent(c *gin.Context) {
	var req struct {
		Type  string             `json:"type"`
		Props *canvas.PropsPatch `json:"props"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	edit, err := ch.canvas.AddComponent(c.Request.Context(), c.Param("projectId"), req.Type, req.Props)
	if err != nil {
		respondErr(c, ch.log, "add_component_failed", err)
		return
	}
	response.RespondCreated(c, "Component added", edit)
}

// PATCH /api/projects/:projectId/components/:componentId
func (ch *CanvasHandler) UpdateComponent(c *gin.Context) {
	var patch canvas.PropsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	edit, err := ch.canvas.UpdateComponent(c.Request.Context(), c.Param("projectId"), c.Param("componentId"), patch)
	if err != nil {
		respondErr(c, ch.log, "update_component_failed", err)
		return
	}
	response.RespondOK(c, edit)
}

// POST /api/projects/:projectId/components/:componentId/move
// body: { "dx": 10, "dy": -4 }
func (ch *CanvasHandler) MoveComponent(c *gin.Context) {
	var req struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	edit, err := ch.canvas.MoveComponent(c.Request.Context(), c.Param("projectId"), c.Param("componentId"), req.DX, req.DY)
	if err != nil {
		respondErr(c, ch.log, "move_component_failed", err)
		return
	}
	response.RespondOK(c, edit)
}

// POST /api/projects/:projectId/components/:componentId/duplicate
func (ch *CanvasHandler) DuplicateComponent(c *gin.Context) {
	edit, err := ch.canvas.DuplicateComponent(c.Request.Context(), c.Param("projectId"), c.Param("componentId"))
	if err != nil {
		respondErr(c, ch.log, "duplicate_component_failed", err)
		return
	}
	response.RespondCreated(c, "Component duplicated", edit)
}

// DELETE /api/projects/:projectId/components/:componentId
func (ch *CanvasHandler) RemoveComponent(c *gin.Context) {
	edit, err := ch.canvas.RemoveComponent(c.Request.Context(), c.Param("projectId"), c.Param("componentId"))
	if err != nil {
		respondErr(c, ch.log, "remove_component_failed", err)
		return
	}
	response.RespondOK(c, edit)
}

// GET /api/projects/:projectId/components/:componentId/points
func (ch *CanvasHandler) Points(c *gin.Context) {
	points, err := ch.canvas.Points(c.Request.Context(), c.Param("projectId"), c.Param("componentId"))
	if err != nil {
		respondErr(c, ch.log, "load_points_failed", err)
		return
	}
	response.RespondOK(c, points)
}

// POST /api/projects/:projectId/connections
// body: { "from": "comp-...", "to": "comp-...", "type": "data" }
func (ch *CanvasHandler) Connect(c *gin.Context) {
	var req canvas.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	edit, err := ch.canvas.Connect(c.Request.Context(), c.Param("projectId"), req)
	if err != nil {
		respondErr(c, ch.log, "connect_failed", err)
		return
	}
	response.RespondCreated(c, "Connection added", edit)
}

// DELETE /api/projects/:projectId/connections/:connectionId
func (ch *CanvasHandler) Disconnect(c *gin.Context) {
	edit, err := ch.canvas.Disconnect(c.Request.Context(), c.Param("projectId"), c.Param("connectionId"))
	if err != nil {
		respondErr(c, ch.log, "disconnect_failed", err)
		return
	}
	response.RespondOK(c, edit)
}

// GET /api/projects/:projectId/validate
func (ch *CanvasHandler) Validate(c *gin.Context) {
	report, err := ch.canvas.Validate(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondErr(c, ch.log, "validate_failed", err)
		return
	}
	response.RespondOK(c, report)
}

// GET /api/projects/:projectId/code
// Responds with the generated module as text/plain unless JSON is requested.
func (ch *CanvasHandler) Code(c *gin.Context) {
	src, err := ch.canvas.SourceText(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondErr(c, ch.log, "render_code_failed", err)
		return
	}
	if c.Query("format") == "json" {
		response.RespondOK(c, gin.H{"code": src})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(src))
}

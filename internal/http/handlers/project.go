package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackgenie/stackgenie-backend/internal/http/response"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/services"
)

type ProjectHandler struct {
	log        *logger.Logger
	projects   services.ProjectService
	generation services.GenerationService
}

func NewProjectHandler(log *logger.Logger, projects services.ProjectService, generation services.GenerationService) *ProjectHandler {
	return &ProjectHandler{
		log:        log.With("handler", "ProjectHandler"),
		projects:   projects,
		generation: generation,
	}
}

// POST /api/projects
func (ph *ProjectHandler) Create(c *gin.Context) {
	var req services.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := ph.projects.Create(c.Request.Context(), req)
	if err != nil {
		respondErr(c, ph.log, "create_project_failed", err)
		return
	}
	response.RespondCreated(c, "Project created", view)
}

// GET /api/projects
func (ph *ProjectHandler) List(c *gin.Context) {
	list, err := ph.projects.List(c.Request.Context())
	if err != nil {
		respondErr(c, ph.log, "list_projects_failed", err)
		return
	}
	if list == nil {
		list = []*services.ProjectView{}
	}
	response.RespondOK(c, list)
}

// GET /api/projects/:projectId
func (ph *ProjectHandler) Get(c *gin.Context) {
	view, err := ph.projects.Get(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondErr(c, ph.log, "load_project_failed", err)
		return
	}
	response.RespondOK(c, view)
}

// PUT /api/projects/:projectId
func (ph *ProjectHandler) Save(c *gin.Context) {
	var req services.ProjectUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := ph.projects.Save(c.Request.Context(), c.Param("projectId"), req)
	if err != nil {
		respondErr(c, ph.log, "save_project_failed", err)
		return
	}
	response.RespondOK(c, view)
}

// DELETE /api/projects/:projectId
func (ph *ProjectHandler) Delete(c *gin.Context) {
	if err := ph.projects.Delete(c.Request.Context(), c.Param("projectId")); err != nil {
		respondErr(c, ph.log, "delete_project_failed", err)
		return
	}
	response.RespondMessage(c, "Project deleted")
}

// POST /api/projects/generate
// body: { "prompt": "...", "userInfo": {...} }
func (ph *ProjectHandler) Generate(c *gin.Context) {
	var req services.GenerateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := ph.generation.Generate(c.Request.Context(), req)
	if err != nil {
		respondErr(c, ph.log, "generation_failed", err)
		return
	}
	response.RespondCreated(c, "Project generated", view)
}

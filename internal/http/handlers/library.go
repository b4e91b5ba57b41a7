package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/http/response"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/services"
)

// LibraryHandler serves the reusable component definitions under /api/components.
type LibraryHandler struct {
	log     *logger.Logger
	library services.LibraryService
}

func NewLibraryHandler(log *logger.Logger, library services.LibraryService) *LibraryHandler {
	return &LibraryHandler{log: log.With("handler", "LibraryHandler"), library: library}
}

func componentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_component_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/components
func (lh *LibraryHandler) Create(c *gin.Context) {
	var req services.LibraryComponentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	def, err := lh.library.Create(c.Request.Context(), req)
	if err != nil {
		respondErr(c, lh.log, "create_component_failed", err)
		return
	}
	response.RespondCreated(c, "Component created", def)
}

// GET /api/components?type=&projectId=
func (lh *LibraryHandler) List(c *gin.Context) {
	list, err := lh.library.List(c.Request.Context(), repos.ComponentFilter{
		Type:      c.Query("type"),
		ProjectID: c.Query("projectId"),
	})
	if err != nil {
		respondErr(c, lh.log, "list_components_failed", err)
		return
	}
	if list == nil {
		list = []*types.ComponentDefinition{}
	}
	response.RespondOK(c, list)
}

// GET /api/components/:id
func (lh *LibraryHandler) Get(c *gin.Context) {
	id, ok := componentID(c)
	if !ok {
		return
	}
	def, err := lh.library.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, lh.log, "load_component_failed", err)
		return
	}
	response.RespondOK(c, def)
}

// PUT /api/components/:id
func (lh *LibraryHandler) Update(c *gin.Context) {
	id, ok := componentID(c)
	if !ok {
		return
	}
	var req services.LibraryComponentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	def, err := lh.library.Update(c.Request.Context(), id, req)
	if err != nil {
		respondErr(c, lh.log, "update_component_failed", err)
		return
	}
	response.RespondOK(c, def)
}

// DELETE /api/components/:id
func (lh *LibraryHandler) Delete(c *gin.Context) {
	id, ok := componentID(c)
	if !ok {
		return
	}
	if err := lh.library.Delete(c.Request.Context(), id); err != nil {
		respondErr(c, lh.log, "delete_component_failed", err)
		return
	}
	response.RespondMessage(c, "Component deleted")
}

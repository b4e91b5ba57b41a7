package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/http/response"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/services"
)

type SchemaHandler struct {
	log     *logger.Logger
	schemas services.SchemaService
}

func NewSchemaHandler(log *logger.Logger, schemas services.SchemaService) *SchemaHandler {
	return &SchemaHandler{log: log.With("handler", "SchemaHandler"), schemas: schemas}
}

// GET /api/projects/:projectId/schema
func (sh *SchemaHandler) Get(c *gin.Context) {
	s, err := sh.schemas.Get(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondErr(c, sh.log, "load_schema_failed", err)
		return
	}
	response.RespondOK(c, s)
}

// PUT /api/projects/:projectId/schema
func (sh *SchemaHandler) Upsert(c *gin.Context) {
	var req services.SchemaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, err := sh.schemas.Upsert(c.Request.Context(), c.Param("projectId"), req)
	if err != nil {
		respondErr(c, sh.log, "save_schema_failed", err)
		return
	}
	response.RespondOK(c, s)
}

// POST /api/projects/:projectId/schema/tables
func (sh *SchemaHandler) AddTable(c *gin.Context) {
	var table types.SchemaTable
	if err := c.ShouldBindJSON(&table); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, err := sh.schemas.AddTable(c.Request.Context(), c.Param("projectId"), table)
	if err != nil {
		respondErr(c, sh.log, "add_table_failed", err)
		return
	}
	response.RespondCreated(c, "Table added", s)
}

// PUT /api/projects/:projectId/schema/tables/:tableName
func (sh *SchemaHandler) UpdateTable(c *gin.Context) {
	var table types.SchemaTable
	if err := c.ShouldBindJSON(&table); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, err := sh.schemas.UpdateTable(c.Request.Context(), c.Param("projectId"), c.Param("tableName"), table)
	if err != nil {
		respondErr(c, sh.log, "update_table_failed", err)
		return
	}
	response.RespondOK(c, s)
}

// DELETE /api/projects/:projectId/schema/tables/:tableName
func (sh *SchemaHandler) DeleteTable(c *gin.Context) {
	s, err := sh.schemas.DeleteTable(c.Request.Context(), c.Param("projectId"), c.Param("tableName"))
	if err != nil {
		respondErr(c, sh.log, "delete_table_failed", err)
		return
	}
	response.RespondOK(c, s)
}

// POST /api/projects/:projectId/schema/relationships
func (sh *SchemaHandler) AddRelationship(c *gin.Context) {
	var rel types.SchemaRelationship
	if err := c.ShouldBindJSON(&rel); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, err := sh.schemas.AddRelationship(c.Request.Context(), c.Param("projectId"), rel)
	if err != nil {
		respondErr(c, sh.log, "add_relationship_failed", err)
		return
	}
	response.RespondCreated(c, "Relationship added", s)
}

// DELETE /api/projects/:projectId/schema/relationships
// body: { "source": {"table","field"}, "target": {"table","field"} }
func (sh *SchemaHandler) DeleteRelationship(c *gin.Context) {
	var req struct {
		Source types.RelationshipEnd `json:"source"`
		Target types.RelationshipEnd `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, err := sh.schemas.DeleteRelationship(c.Request.Context(), c.Param("projectId"), req.Source, req.Target)
	if err != nil {
		respondErr(c, sh.log, "delete_relationship_failed", err)
		return
	}
	response.RespondOK(c, s)
}

// GET /api/projects/:projectId/schema/prisma
func (sh *SchemaHandler) Prisma(c *gin.Context) {
	out, err := sh.schemas.Prisma(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondErr(c, sh.log, "render_prisma_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"prisma": out})
}

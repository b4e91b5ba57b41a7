package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackgenie/stackgenie-backend/internal/http/response"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
	"github.com/stackgenie/stackgenie-backend/internal/services"
)

type UserHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewUserHandler(log *logger.Logger, authService services.AuthService) *UserHandler {
	return &UserHandler{log: log.With("handler", "UserHandler"), authService: authService}
}

// GET /api/auth/profile
func (uh *UserHandler) GetProfile(c *gin.Context) {
	me, err := uh.authService.GetMe(c.Request.Context())
	if err != nil {
		respondErr(c, uh.log, "load_profile_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"user": me})
}

// PUT /api/auth/profile
// body: { "name": "..." }
func (uh *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	u, err := uh.authService.UpdateName(c.Request.Context(), req.Name)
	if err != nil {
		respondErr(c, uh.log, "update_profile_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

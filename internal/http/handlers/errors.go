package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
	"github.com/stackgenie/stackgenie-backend/internal/http/response"
	"github.com/stackgenie/stackgenie-backend/internal/platform/apierr"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

// statusFor maps service and graph errors to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	if ae, ok := apierr.As(err); ok {
		return ae.Status, ae.Code
	}
	switch kind := canvas.KindOf(err); kind {
	case canvas.KindNotFound:
		return http.StatusNotFound, string(kind)
	case canvas.KindInvalidEndpoint, canvas.KindSelfLoop, canvas.KindInvalidType, canvas.KindInvalidComponent:
		return http.StatusBadRequest, string(kind)
	case canvas.KindCorruptDocument:
		return http.StatusUnprocessableEntity, string(kind)
	case canvas.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable, string(kind)
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondErr writes err through the envelope. Server faults are logged and
// their cause is kept out of the body.
func respondErr(c *gin.Context, log *logger.Logger, fallbackCode string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		if code == "internal_error" && fallbackCode != "" {
			code = fallbackCode
		}
		if log != nil {
			log.Error("Request failed", "path", c.FullPath(), "code", code, "error", err)
		}
		if _, ok := apierr.As(err); !ok {
			response.RespondError(c, status, code, nil)
			return
		}
	}
	var violations []canvas.Violation
	if ce, ok := asCanvasError(err); ok {
		violations = ce.Violations
	}
	if len(violations) > 0 {
		c.JSON(status, response.Envelope{
			Success: false,
			Message: err.Error(),
			Data:    gin.H{"violations": violations},
			Error:   &response.APIError{Message: err.Error(), Code: code},
		})
		return
	}
	response.RespondError(c, status, code, err)
}

func asCanvasError(err error) (*canvas.Error, bool) {
	var ce *canvas.Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

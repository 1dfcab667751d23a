package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/slotwise/scheduler-api/pkg/errors"
)

// RespondError maps the application error taxonomy to transport
// responses. Queue and persistence failures never reach here with
// operation-level success; anything unrecognized is a 500.
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.ErrValidation:
		status = http.StatusBadRequest
	case apperrors.ErrConflict:
		status = http.StatusConflict
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrForbidden:
		status = http.StatusForbidden
	case apperrors.ErrState:
		status = http.StatusUnprocessableEntity
	}

	body := gin.H{"status": "error", "message": err.Error()}
	if reason := apperrors.ReasonOf(err); reason != "" {
		body["reason"] = string(reason)
	}
	c.JSON(status, body)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"estatehub/listings/internal/services"
)

// respondError maps service errors to a status code and JSON body. fallback is
// the message used for unexpected store failures. The raw error text is added
// under "error" unless hideDetails is set.
func respondError(c *gin.Context, err error, fallback string, hideDetails bool) {
	status := http.StatusInternalServerError
	message := fallback

	switch {
	case errors.Is(err, services.ErrInvalidID):
		status, message = http.StatusBadRequest, "Invalid id format"
	case errors.Is(err, services.ErrMissingParam):
		status, message = http.StatusBadRequest, "Missing required parameter"
	case errors.Is(err, services.ErrValidation):
		status, message = http.StatusBadRequest, "Listing validation failed"
	case errors.Is(err, services.ErrNotFound):
		status, message = http.StatusNotFound, "Listing not found"
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}

	body := gin.H{"message": message}
	if !hideDetails {
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}

// Package handlers contains the HTTP handler layer.  Handlers translate
// between the JSON API surface and the application service; they hold no
// business logic.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps application errors to HTTP status codes.  Server-side
// errors are masked; the code is still surfaced for correlation.
func respondError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := apperrors.HTTPStatusForCode(code)

	message := err.Error()
	if apperrors.IsServerError(code) {
		message = "internal server error"
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Code: string(code), Message: message})
}

// queryInt reads an integer query parameter, returning fallback when absent
// or malformed.
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/domain/property"
)

// propertyService is the slice of the application service the handler uses.
type propertyService interface {
	GetProperty(ctx context.Context, pin string) (*property.SubjectProperty, error)
	Comparables(ctx context.Context, pin string, limit int) ([]analysis.Comparable, error)
}

// PropertyHandler serves the subject property endpoints.
type PropertyHandler struct {
	service propertyService
}

// NewPropertyHandler constructs the handler.
func NewPropertyHandler(service propertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// Get returns the subject snapshot for a parcel.
// GET /api/v1/properties/:pin
func (h *PropertyHandler) Get(c *gin.Context) {
	subject, err := h.service.GetProperty(c.Request.Context(), c.Param("pin"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subject)
}

// Comparables returns the ranked comparables for a parcel without running a
// full opportunity analysis.
// GET /api/v1/properties/:pin/comparables
func (h *PropertyHandler) Comparables(c *gin.Context) {
	limit := queryInt(c, "limit", 0)

	comparables, err := h.service.Comparables(c.Request.Context(), c.Param("pin"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comparables": comparables, "count": len(comparables)})
}

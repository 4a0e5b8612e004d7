package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parcelworks/appealengine/internal/application/appeal"
	"github.com/parcelworks/appealengine/internal/domain/analysis"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// analysisService is the slice of the application service the handler uses.
type analysisService interface {
	Analyze(ctx context.Context, req appeal.AnalyzeRequest) (*analysis.AppealAnalysis, error)
	GetAnalysis(ctx context.Context, id uuid.UUID) (*analysis.AppealAnalysis, error)
	ListAnalyses(ctx context.Context, pin string, limit int) ([]*analysis.AppealAnalysis, error)
	EnqueueAnalysis(ctx context.Context, pin string, limit int) error
}

// AnalysisHandler serves the appeal analysis endpoints.
type AnalysisHandler struct {
	service analysisService
}

// NewAnalysisHandler constructs the handler.
func NewAnalysisHandler(service analysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

type createAnalysisRequest struct {
	PIN   string `json:"pin" binding:"required"`
	Limit int    `json:"limit"`
	Async bool   `json:"async"`
}

// Create runs an analysis synchronously, or enqueues it when async is set.
// POST /api/v1/analyses
func (h *AnalysisHandler) Create(c *gin.Context) {
	var req createAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	if req.Async {
		if err := h.service.EnqueueAnalysis(c.Request.Context(), req.PIN, req.Limit); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "pin": req.PIN})
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), appeal.AnalyzeRequest{
		PIN:     req.PIN,
		Limit:   req.Limit,
		Trigger: "api",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Get returns one stored analysis.
// GET /api/v1/analyses/:id
func (h *AnalysisHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.New(apperrors.ErrCodeBadRequest, "invalid analysis id"))
		return
	}

	result, err := h.service.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListByProperty returns recent analyses for a parcel, newest first.
// GET /api/v1/properties/:pin/analyses
func (h *AnalysisHandler) ListByProperty(c *gin.Context) {
	limit := queryInt(c, "limit", 10)

	results, err := h.service.ListAnalyses(c.Request.Context(), c.Param("pin"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": results, "count": len(results)})
}

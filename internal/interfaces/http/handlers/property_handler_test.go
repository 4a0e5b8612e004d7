package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/domain/property"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

type fakePropertyService struct {
	subject     *property.SubjectProperty
	subjectErr  error
	comparables []analysis.Comparable
	compsErr    error
	compsLimit  int
}

func (f *fakePropertyService) GetProperty(context.Context, string) (*property.SubjectProperty, error) {
	return f.subject, f.subjectErr
}

func (f *fakePropertyService) Comparables(_ context.Context, _ string, limit int) ([]analysis.Comparable, error) {
	f.compsLimit = limit
	return f.comparables, f.compsErr
}

func propertyRouter(svc propertyService) *gin.Engine {
	h := NewPropertyHandler(svc)
	r := gin.New()
	r.GET("/api/v1/properties/:pin", h.Get)
	r.GET("/api/v1/properties/:pin/comparables", h.Comparables)
	return r
}

func TestPropertyHandler_Get(t *testing.T) {
	svc := &fakePropertyService{
		subject: &property.SubjectProperty{PIN: "14081020181001", ClassCode: "299"},
	}
	r := propertyRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/14081020181001", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body property.SubjectProperty
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, property.PIN("14081020181001"), body.PIN)
}

func TestPropertyHandler_GetNotFound(t *testing.T) {
	svc := &fakePropertyService{
		subjectErr: apperrors.New(apperrors.ErrCodePropertyNotFound, "property not found"),
	}
	r := propertyRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/99999999999999", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPropertyHandler_Comparables(t *testing.T) {
	svc := &fakePropertyService{
		comparables: []analysis.Comparable{
			{PIN: "14081020181002", Kind: "assessment"},
		},
	}
	r := propertyRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/14081020181001/comparables?limit=7", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, svc.compsLimit)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestPropertyHandler_ComparablesRateLimited(t *testing.T) {
	svc := &fakePropertyService{
		compsErr: apperrors.New(apperrors.ErrCodeDataSourceRateLimited, "portal rate limit exceeded"),
	}
	r := propertyRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/14081020181001/comparables", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

// Package http wires the gin route tree and the HTTP server lifecycle.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/prometheus"
	"github.com/parcelworks/appealengine/internal/interfaces/http/handlers"
	"github.com/parcelworks/appealengine/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and cross-cutting dependencies the
// route tree needs.
type RouterConfig struct {
	AnalysisHandler *handlers.AnalysisHandler
	PropertyHandler *handlers.PropertyHandler
	HealthHandler   *handlers.HealthHandler

	Logger  logging.Logger
	Metrics prometheus.MetricsCollector

	// Mode is the gin mode: "debug", "release", or "test".
	Mode string
}

// NewRouter constructs the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())
	r.Use(middleware.RequestLogging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	{
		if cfg.AnalysisHandler != nil {
			api.POST("/analyses", cfg.AnalysisHandler.Create)
			api.GET("/analyses/:id", cfg.AnalysisHandler.Get)
		}
		if cfg.PropertyHandler != nil {
			api.GET("/properties/:pin", cfg.PropertyHandler.Get)
			api.GET("/properties/:pin/comparables", cfg.PropertyHandler.Comparables)
		}
		if cfg.AnalysisHandler != nil {
			api.GET("/properties/:pin/analyses", cfg.AnalysisHandler.ListByProperty)
		}
	}

	return r
}

// Package prometheus exposes the platform metrics collector.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is the metrics contract used across the platform.
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// HTTP surface.
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)

	// Analysis pipeline.
	IncAnalysisRequested(trigger string)
	IncAnalysisCompleted(confidence string)
	IncAnalysisFailed(reason string)
	ObserveAnalysisDuration(d time.Duration)
	ObserveComparableCount(n int)

	// Collaborators.
	IncCacheHit(cache string)
	IncCacheMiss(cache string)
	IncSourceFetchError(source string)

	// Handler returns the scrape endpoint handler.
	Handler() http.Handler
}

type collector struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	analysisReq      *prometheus.CounterVec
	analysisDone     *prometheus.CounterVec
	analysisFailed   *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	comparableCount  prometheus.Histogram
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	sourceErrors     *prometheus.CounterVec
}

// NewCollector constructs the collector on a fresh registry.
func NewCollector() MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())

	c := &collector{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appealengine",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "appealengine",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		analysisReq: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appealengine",
			Name:      "analysis_requested_total",
			Help:      "Analysis requests by trigger (http, worker, cli).",
		}, []string{"trigger"}),
		analysisDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appealengine",
			Name:      "analysis_completed_total",
			Help:      "Completed analyses by confidence tier.",
		}, []string{"confidence"}),
		analysisFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appealengine",
			Name:      "analysis_failed_total",
			Help:      "Failed analyses by reason.",
		}, []string{"reason"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "appealengine",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		comparableCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "appealengine",
			Name:      "analysis_comparable_count",
			Help:      "Number of comparables returned per analysis.",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appealengine",
			Name:      "cache_hits_total",
			Help:      "Cache hits by cache name.",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appealengine",
			Name:      "cache_misses_total",
			Help:      "Cache misses by cache name.",
		}, []string{"cache"}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appealengine",
			Name:      "source_fetch_errors_total",
			Help:      "Upstream candidate-source fetch failures by source.",
		}, []string{"source"}),
	}

	registry.MustRegister(
		c.httpRequests, c.httpDuration,
		c.analysisReq, c.analysisDone, c.analysisFailed,
		c.analysisDuration, c.comparableCount,
		c.cacheHits, c.cacheMisses, c.sourceErrors,
	)
	return c
}

func (c *collector) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, httpStatusLabel(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (c *collector) IncAnalysisRequested(trigger string) { c.analysisReq.WithLabelValues(trigger).Inc() }
func (c *collector) IncAnalysisCompleted(confidence string) {
	c.analysisDone.WithLabelValues(confidence).Inc()
}
func (c *collector) IncAnalysisFailed(reason string) { c.analysisFailed.WithLabelValues(reason).Inc() }
func (c *collector) ObserveAnalysisDuration(d time.Duration) {
	c.analysisDuration.Observe(d.Seconds())
}
func (c *collector) ObserveComparableCount(n int) { c.comparableCount.Observe(float64(n)) }
func (c *collector) IncCacheHit(cache string)     { c.cacheHits.WithLabelValues(cache).Inc() }
func (c *collector) IncCacheMiss(cache string)    { c.cacheMisses.WithLabelValues(cache).Inc() }
func (c *collector) IncSourceFetchError(source string) {
	c.sourceErrors.WithLabelValues(source).Inc()
}

func (c *collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func httpStatusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

type nopCollector struct{}

func (nopCollector) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (nopCollector) IncAnalysisRequested(string)                           {}
func (nopCollector) IncAnalysisCompleted(string)                           {}
func (nopCollector) IncAnalysisFailed(string)                              {}
func (nopCollector) ObserveAnalysisDuration(time.Duration)                 {}
func (nopCollector) ObserveComparableCount(int)                            {}
func (nopCollector) IncCacheHit(string)                                    {}
func (nopCollector) IncCacheMiss(string)                                   {}
func (nopCollector) IncSourceFetchError(string)                            {}
func (nopCollector) Handler() http.Handler                                 { return http.NotFoundHandler() }

// NewNopCollector returns a collector that records nothing.  For tests.
func NewNopCollector() MetricsCollector { return nopCollector{} }

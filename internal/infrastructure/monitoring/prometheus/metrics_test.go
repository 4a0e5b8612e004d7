package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c MetricsCollector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollector_RecordsAnalysisMetrics(t *testing.T) {
	c := NewCollector()

	c.IncAnalysisRequested("http")
	c.IncAnalysisCompleted("high")
	c.IncAnalysisCompleted("high")
	c.IncAnalysisFailed("property_not_found")
	c.ObserveAnalysisDuration(250 * time.Millisecond)
	c.ObserveComparableCount(8)

	out := scrape(t, c)
	assert.Contains(t, out, `appealengine_analysis_requested_total{trigger="http"} 1`)
	assert.Contains(t, out, `appealengine_analysis_completed_total{confidence="high"} 2`)
	assert.Contains(t, out, `appealengine_analysis_failed_total{reason="property_not_found"} 1`)
	assert.Contains(t, out, "appealengine_analysis_duration_seconds_count 1")
	assert.Contains(t, out, "appealengine_analysis_comparable_count_count 1")
}

func TestCollector_RecordsHTTPAndCacheMetrics(t *testing.T) {
	c := NewCollector()

	c.ObserveHTTPRequest("POST", "/api/v1/analyses", 201, 120*time.Millisecond)
	c.ObserveHTTPRequest("GET", "/api/v1/properties/:pin", 404, time.Millisecond)
	c.IncCacheHit("analysis")
	c.IncCacheMiss("analysis")
	c.IncSourceFetchError("township_bedrooms")

	out := scrape(t, c)
	assert.Contains(t, out, `appealengine_http_requests_total{method="POST",path="/api/v1/analyses",status="2xx"} 1`)
	assert.Contains(t, out, `status="4xx"`)
	assert.Contains(t, out, `appealengine_cache_hits_total{cache="analysis"} 1`)
	assert.Contains(t, out, `appealengine_cache_misses_total{cache="analysis"} 1`)
	assert.Contains(t, out, `appealengine_source_fetch_errors_total{source="township_bedrooms"} 1`)
}

func TestNopCollector_DoesNothing(t *testing.T) {
	c := NewNopCollector()
	assert.NotPanics(t, func() {
		c.IncAnalysisRequested("http")
		c.ObserveHTTPRequest("GET", "/", 200, time.Second)
	})
}

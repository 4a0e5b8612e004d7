package opendata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/appealengine/internal/config"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.OpenDataConfig{
		BaseURL:  srv.URL,
		AppToken: "token-123",
		Timeout:  5 * time.Second,
		MaxRows:  1000,
	}, logging.NewNopLogger())
}

func TestClient_Fetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resource/uzyt-m557.json", r.URL.Path)
		assert.Equal(t, "token-123", r.Header.Get("X-App-Token"))
		assert.Equal(t, "pin10 = '1408102018'", r.URL.Query().Get("$where"))
		assert.Equal(t, "year DESC", r.URL.Query().Get("$order"))
		assert.Equal(t, "100", r.URL.Query().Get("$limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"pin": "14081020181001", "certified_tot": "18000", "char_beds": 2, "is_mixed_use": false},
			{"pin": "14081020181002", "certified_tot": "19500"}
		]`))
	})

	records, err := client.Fetch(context.Background(), Query{
		Dataset: "uzyt-m557",
		Where:   "pin10 = '1408102018'",
		Order:   "year DESC",
		Limit:   100,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Numbers and booleans are flattened to strings for the normalizer.
	assert.Equal(t, "14081020181001", records[0].Get("pin"))
	assert.Equal(t, "18000", records[0].Get("certified_tot"))
	assert.Equal(t, "2", records[0].Get("char_beds"))
	assert.Equal(t, "false", records[0].Get("is_mixed_use"))
	assert.Equal(t, "", records[1].Get("char_beds"))
}

func TestClient_FetchCapsLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000", r.URL.Query().Get("$limit"))
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.Fetch(context.Background(), Query{Dataset: "uzyt-m557", Limit: 50000})
	require.NoError(t, err)
}

func TestClient_FetchRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Fetch(context.Background(), Query{Dataset: "uzyt-m557"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDataSourceRateLimited))
}

func TestClient_FetchServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Fetch(context.Background(), Query{Dataset: "uzyt-m557"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDataSourceUnavailable))
}

func TestClient_FetchMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"}`))
	})

	_, err := client.Fetch(context.Background(), Query{Dataset: "uzyt-m557"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDataSourceParseError))
}

func TestClient_FetchRequiresDataset(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := client.Fetch(context.Background(), Query{})
	assert.Error(t, err)
}

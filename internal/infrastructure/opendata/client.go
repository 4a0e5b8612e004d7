// Package opendata is the HTTP client for the county open-data portal.  The
// portal speaks a SoQL-style query dialect; this client only builds queries
// and returns raw string-keyed records.  All interpretation of the records
// happens in the application layer.
package opendata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/parcelworks/appealengine/internal/config"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// Record is one raw row from the portal.  Every value is kept as a string;
// typed interpretation belongs to the field normalizer downstream.
type Record map[string]string

// Get returns the named field, or "" when absent.
func (r Record) Get(key string) string { return r[key] }

// Query describes one portal request.
type Query struct {
	Dataset string
	Where   string
	Order   string
	Limit   int
}

// Client fetches records from the open-data portal.
type Client struct {
	baseURL    string
	appToken   string
	maxRows    int
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient constructs a portal client from configuration.
func NewClient(cfg config.OpenDataConfig, log logging.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		appToken:   cfg.AppToken,
		maxRows:    cfg.MaxRows,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log,
	}
}

// Fetch executes one query and returns the raw rows.  Timeouts and transport
// failures surface as data-source errors; callers decide whether to degrade.
func (c *Client) Fetch(ctx context.Context, q Query) ([]Record, error) {
	if q.Dataset == "" {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "dataset id is required")
	}
	limit := q.Limit
	if limit <= 0 || limit > c.maxRows {
		limit = c.maxRows
	}

	params := url.Values{}
	if q.Where != "" {
		params.Set("$where", q.Where)
	}
	if q.Order != "" {
		params.Set("$order", q.Order)
	}
	params.Set("$limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/resource/%s.json?%s", c.baseURL, q.Dataset, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build portal request")
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDataSourceUnavailable, "portal request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.New(apperrors.ErrCodeDataSourceRateLimited, "portal rate limit exceeded")
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.Newf(apperrors.ErrCodeDataSourceUnavailable,
			"portal returned status %d: %s", resp.StatusCode, string(body))
	}

	var raw []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDataSourceParseError, "failed to decode portal response")
	}

	records := make([]Record, 0, len(raw))
	for _, row := range raw {
		rec := make(Record, len(row))
		for k, v := range row {
			rec[k] = stringify(v)
		}
		records = append(records, rec)
	}

	c.logger.Debug("portal query complete",
		logging.String("dataset", q.Dataset),
		logging.Int("rows", len(records)),
	)
	return records, nil
}

// stringify flattens a decoded JSON value to the string form the normalizer
// expects.  Nested objects are dropped.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

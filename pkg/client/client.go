// Package client is the Go SDK for the appeal engine HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/domain/property"
)

// Version is the SDK version reported in the User-Agent.
const Version = "0.1.0"

// Client talks to the appeal engine API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// APIError is an error response from the API.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("appealengine: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound reports whether the API returned 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsRateLimited reports whether the API returned 429.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// NewClient creates an SDK client for the given API base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("client: baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid baseURL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("client: baseURL scheme must be http or https")
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "appealengine-go/" + Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AnalyzeRequest is the body for Analyze.
type AnalyzeRequest struct {
	PIN   string `json:"pin"`
	Limit int    `json:"limit,omitempty"`
	Async bool   `json:"async,omitempty"`
}

// Analyze runs an appeal analysis for a parcel.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*analysis.AppealAnalysis, error) {
	var result analysis.AppealAnalysis
	if err := c.do(ctx, http.MethodPost, "/api/v1/analyses", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EnqueueAnalysis queues an analysis for asynchronous processing.
func (c *Client) EnqueueAnalysis(ctx context.Context, pin string, limit int) error {
	req := AnalyzeRequest{PIN: pin, Limit: limit, Async: true}
	return c.do(ctx, http.MethodPost, "/api/v1/analyses", req, nil)
}

// GetAnalysis fetches one stored analysis by id.
func (c *Client) GetAnalysis(ctx context.Context, id string) (*analysis.AppealAnalysis, error) {
	var result analysis.AppealAnalysis
	if err := c.do(ctx, http.MethodGet, "/api/v1/analyses/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProperty fetches the subject snapshot for a parcel.
func (c *Client) GetProperty(ctx context.Context, pin string) (*property.SubjectProperty, error) {
	var result property.SubjectProperty
	if err := c.do(ctx, http.MethodGet, "/api/v1/properties/"+url.PathEscape(pin), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type comparablesResponse struct {
	Comparables []analysis.Comparable `json:"comparables"`
	Count       int                   `json:"count"`
}

// Comparables fetches the ranked comparables for a parcel.
func (c *Client) Comparables(ctx context.Context, pin string, limit int) ([]analysis.Comparable, error) {
	path := "/api/v1/properties/" + url.PathEscape(pin) + "/comparables"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var result comparablesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Comparables, nil
}

type analysesResponse struct {
	Analyses []*analysis.AppealAnalysis `json:"analyses"`
	Count    int                        `json:"count"`
}

// ListAnalyses fetches recent analyses for a parcel, newest first.
func (c *Client) ListAnalyses(ctx context.Context, pin string, limit int) ([]*analysis.AppealAnalysis, error) {
	path := "/api/v1/properties/" + url.PathEscape(pin) + "/analyses"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var result analysesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Analyses, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(apiErr); decodeErr != nil {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

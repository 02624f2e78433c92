// Package gazelapi is an HTTP client for the remote SEO analysis API.
package gazelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"gazel-funnel/internal/domain"
	"gazel-funnel/internal/infra/metrics"
)

const (
	endpointSubmit      = "/api/v1/seo_analyze"
	endpointPayment     = "/api/v1/checkpayment"
	endpointPreResults  = "/api/v1/pre_results"
	endpointFullResults = "/api/v1/full_results"
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SubmitAnalysis triggers the remote analysis job. The response body carries
// nothing we need, but the request itself must succeed.
func (c *Client) SubmitAnalysis(ctx context.Context, analyzedURL, id string) error {
	payload := map[string]string{"url": analyzedURL, "id": id}
	_, err := c.post(ctx, endpointSubmit, payload)
	return err
}

// CheckPayment reports whether the analysis was paid for. The canonical
// contract is a bare JSON string ("paid"/"unpaid"); the legacy
// {"paid": bool} object shape is accepted as well.
func (c *Client) CheckPayment(ctx context.Context, id string) (bool, error) {
	raw, err := c.post(ctx, endpointPayment, map[string]string{"id": id})
	if err != nil {
		return false, err
	}
	var status string
	if err := json.Unmarshal(raw, &status); err == nil {
		return status == "paid", nil
	}
	var structured struct {
		Paid bool `json:"paid"`
	}
	if err := json.Unmarshal(raw, &structured); err != nil {
		return false, fmt.Errorf("decode payment status: %w", err)
	}
	return structured.Paid, nil
}

// FetchResults loads the raw report payload, choosing the endpoint by
// payment state. Single attempt, no retries.
func (c *Client) FetchResults(ctx context.Context, id string, paid bool) (json.RawMessage, error) {
	endpoint := endpointPreResults
	if paid {
		endpoint = endpointFullResults
	}
	return c.post(ctx, endpoint, map[string]string{"id": id})
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("gazel api request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveAPIRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gazel api error: endpoint=%s status=%d body=%s", endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return raw, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string, body any) (*http.Request, error) {
	resolved := *c.baseURL
	basePath := strings.TrimSuffix(c.baseURL.Path, "/")
	resolved.Path = path.Clean(basePath + endpoint)

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resolved.String(), bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

var _ domain.AnalysisAPI = (*Client)(nil)

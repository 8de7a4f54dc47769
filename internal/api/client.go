// Package api is the thin HTTP client for the remote CRUD endpoints.
//
// The server is the source of truth; this client only shuttles canonical
// records. Retry policy lives in the sync engine's queue, not here: every
// call is a single attempt whose failure is classified for the drain loop.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. "https://hub.example.com".
	// Entity paths are appended under /api/.
	BaseURL string

	// Token is the pre-issued bearer token for the authenticated user.
	// Token issuance is outside this client's concern.
	Token string

	// HTTPClient overrides the default transport (10s timeout).
	HTTPClient *http.Client

	// UserAgent is sent when non-empty.
	UserAgent string
}

// Client talks to the remote API. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	userAgent  string
}

// New creates a Client with sensible defaults.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      opts.Token,
		httpClient: httpClient,
		userAgent:  strings.TrimSpace(opts.UserAgent),
	}
}

// Create POSTs a new record to /api/{segment}.
func (c *Client) Create(ctx context.Context, segment string, payload json.RawMessage) error {
	return c.do(ctx, http.MethodPost, "/api/"+segment, payload, nil)
}

// Update PUTs a partial record to /api/{segment}/{id}.
func (c *Client) Update(ctx context.Context, segment, id string, payload json.RawMessage) error {
	return c.do(ctx, http.MethodPut, "/api/"+segment+"/"+id, payload, nil)
}

// Delete removes /api/{segment}/{id}.
func (c *Client) Delete(ctx context.Context, segment, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/"+segment+"/"+id, nil, nil)
}

// List GETs the full collection at /api/{segment} for the authenticated
// user. Records are returned raw; the caller decodes per entity type.
func (c *Client) List(ctx context.Context, segment string) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/"+segment, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do executes one request. Transport failures come back as-is (classified
// as network errors); non-2xx responses become *HTTPError.
func (c *Client) do(ctx context.Context, method, path string, body json.RawMessage, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a bounded slice of the body for the error message; the
		// sync engine does not otherwise inspect it.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}

	return nil
}

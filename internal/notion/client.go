// Package notion is a minimal client for the Notion REST API covering the
// calls an export pass needs: data source queries, page retrieval, block
// listing and property updates.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ohler55/ojg/oj"
)

// Defaults for Options.
const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2025-09-03"

	// dataSourcesVersion is the first API version that queries data sources
	// instead of databases.
	dataSourcesVersion = "2025-09-03"
	pageSize           = 100
)

// Options configures a Client.
type Options struct {
	Token   string
	BaseURL string
	Version string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the Notion API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	version    string
	logger     *slog.Logger
}

// NewClient returns a Client with defaults applied for empty options.
func NewClient(opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		version:    opts.Version,
		logger:     opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.version == "" {
		c.version = DefaultVersion
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("notion: HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// usesDataSources reports whether the configured API version addresses
// data sources rather than databases. Versions are ISO dates.
func (c *Client) usesDataSources() bool {
	return c.version >= dataSourcesVersion
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body any) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("notion: parse base URL: %w", err)
	}
	u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), strings.TrimPrefix(endpoint, "/"))
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("notion: marshal body: %w", err)
		}
		req, err = http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("notion: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("notion: create request: %w", err)
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and returns the decoded JSON object.
func (c *Client) do(req *http.Request) (map[string]any, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("notion: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		if parsed, perr := oj.Parse(data); perr == nil {
			if obj, ok := parsed.(map[string]any); ok {
				apiErr.Code, _ = obj["code"].(string)
				if msg, ok := obj["message"].(string); ok {
					apiErr.Message = msg
				}
			}
		}
		return nil, apiErr
	}

	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("notion: decode response: %w", err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("notion: unexpected response type %T", parsed)
	}
	return obj, nil
}

// results returns the "results" objects of a list response and the cursor of
// the next page, empty when there is none.
func results(resp map[string]any) ([]map[string]any, string) {
	raw, _ := resp["results"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if obj, ok := r.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	next := ""
	if more, _ := resp["has_more"].(bool); more {
		next, _ = resp["next_cursor"].(string)
	}
	return out, next
}

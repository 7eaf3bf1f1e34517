package notion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/starford/notionsite/internal/record"
)

// Status property kinds.
const (
	StatusTypeStatus = "status"
	StatusTypeSelect = "select"
)

// Query selects the pages of a collection whose status equals one of Values.
type Query struct {
	DatabaseID   string
	DataSourceID string
	// StatusProperty is the status property name; StatusType is its kind,
	// StatusTypeStatus or StatusTypeSelect.
	StatusProperty string
	StatusType     string
	Values         []string
}

// Select runs q, following pagination, and returns the raw pages. When the
// API version addresses data sources and q has no DataSourceID, the first
// data source of the database is used.
func (c *Client) Select(ctx context.Context, q Query) ([]record.Page, error) {
	endpoint := "databases/" + url.PathEscape(q.DatabaseID) + "/query"
	if c.usesDataSources() {
		id := q.DataSourceID
		if id == "" {
			resolved, err := c.ResolveDataSource(ctx, q.DatabaseID)
			if err != nil {
				return nil, err
			}
			id = resolved
		}
		endpoint = "data_sources/" + url.PathEscape(id) + "/query"
	}

	body := map[string]any{
		"filter":    statusFilter(q),
		"page_size": pageSize,
	}

	var pages []record.Page
	for {
		req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, body)
		if err != nil {
			return nil, err
		}
		resp, err := c.do(req)
		if err != nil {
			return nil, err
		}
		batch, next := results(resp)
		pages = append(pages, batch...)
		if next == "" {
			return pages, nil
		}
		body["start_cursor"] = next
	}
}

func statusFilter(q Query) map[string]any {
	or := make([]any, 0, len(q.Values))
	for _, v := range q.Values {
		if v == "" {
			continue
		}
		or = append(or, map[string]any{
			"property":   q.StatusProperty,
			q.StatusType: map[string]any{"equals": v},
		})
	}
	return map[string]any{"or": or}
}

// ResolveDataSource returns the id of the first data source of a database.
func (c *Client) ResolveDataSource(ctx context.Context, databaseID string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "databases/"+url.PathEscape(databaseID), nil, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	sources, _ := resp["data_sources"].([]any)
	for _, s := range sources {
		src, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := src["id"].(string); id != "" {
			name, _ := src["name"].(string)
			c.logger.Info("resolved data source",
				slog.String("database_id", databaseID),
				slog.String("data_source_id", id),
				slog.String("name", name),
				slog.Int("available", len(sources)))
			return id, nil
		}
	}
	return "", fmt.Errorf("notion: database %s has no data sources", databaseID)
}

// RetrievePage returns a single page object.
func (c *Client) RetrievePage(ctx context.Context, id string) (record.Page, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "pages/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// StatusUpdate moves a page to a new status and optionally publishes its
// permalink to a url property.
type StatusUpdate struct {
	PageID         string
	StatusProperty string
	StatusType     string
	Value          string
	// PermalinkProperty is written only when non-empty.
	PermalinkProperty string
	Permalink         string
}

// WriteStatus applies u to its page.
func (c *Client) WriteStatus(ctx context.Context, u StatusUpdate) error {
	props := map[string]any{
		u.StatusProperty: map[string]any{
			u.StatusType: map[string]any{"name": u.Value},
		},
	}
	if u.PermalinkProperty != "" {
		props[u.PermalinkProperty] = map[string]any{"url": u.Permalink}
	}
	req, err := c.newRequest(ctx, http.MethodPatch, "pages/"+url.PathEscape(u.PageID), nil,
		map[string]any{"properties": props})
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// BlockChildren lists the direct children of a block or page, following
// pagination.
func (c *Client) BlockChildren(ctx context.Context, id string) ([]map[string]any, error) {
	var (
		out    []map[string]any
		cursor string
	)
	for {
		q := url.Values{"page_size": {strconv.Itoa(pageSize)}}
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		req, err := c.newRequest(ctx, http.MethodGet, "blocks/"+url.PathEscape(id)+"/children", q, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.do(req)
		if err != nil {
			return nil, err
		}
		batch, next := results(resp)
		out = append(out, batch...)
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

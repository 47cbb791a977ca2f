// Package tracker is the client for the external work-tracking system that
// supplies the work items QVF scores. Items are read-only inputs here; the
// tracker remains the source of truth for their attributes.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/QVF/internal/scoring"
)

type Client interface {
	GetWorkItems(ctx context.Context, ids []string) ([]scoring.WorkItem, error)
	ListOpenWorkItems(ctx context.Context) ([]scoring.WorkItem, error)
}

// workItemPayload is the tracker's wire shape; Fields carries the raw
// criterion values keyed by criterion id.
type workItemPayload struct {
	ID     string             `json:"id"`
	Title  string             `json:"title"`
	Type   string             `json:"type"`
	Fields map[string]float64 `json:"fields"`
}

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) doReq(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("tracker %s %s: %d %s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *HTTPClient) GetWorkItems(ctx context.Context, ids []string) ([]scoring.WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{"ids": []string{strings.Join(ids, ",")}}
	data, err := c.doReq(ctx, "GET", "/api/workitems?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decodeWorkItems(data)
}

func (c *HTTPClient) ListOpenWorkItems(ctx context.Context) ([]scoring.WorkItem, error) {
	data, err := c.doReq(ctx, "GET", "/api/workitems?state=open")
	if err != nil {
		return nil, err
	}
	return decodeWorkItems(data)
}

func decodeWorkItems(data []byte) ([]scoring.WorkItem, error) {
	var payloads []workItemPayload
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("decode work items: %w", err)
	}
	items := make([]scoring.WorkItem, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, scoring.WorkItem{
			ID:     p.ID,
			Title:  p.Title,
			Type:   scoring.WorkItemType(p.Type),
			Values: p.Fields,
		})
	}
	return items, nil
}

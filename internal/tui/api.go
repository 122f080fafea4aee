// Copyright 2025 James Ross
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// JobListItem mirrors internal/httpapi.JobListItem; duplicated rather
// than imported so the TUI depends only on the wire shape, the same
// way the reference module's TUI depends on internal/admin's result
// structs rather than reaching into Redis directly.
type JobListItem struct {
	JobID       string    `json:"job_id"`
	TenantID    string    `json:"tenant_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Client polls the job API's query endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client against baseURL, e.g. http://127.0.0.1:3000.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 5 * time.Second}}
}

// ListJobs fetches every known job's list projection.
func (c *Client) ListJobs(ctx context.Context) ([]JobListItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list jobs: unexpected status %d", resp.StatusCode)
	}
	var items []JobListItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode job list: %w", err)
	}
	return items, nil
}

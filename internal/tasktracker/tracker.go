// Package tasktracker files follow-up tasks for rows the pipeline could not
// fully enrich. Task creation is best-effort: a tracker outage never fails
// a run, and duplicate tasks across re-runs are accepted.
package tasktracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"idqcli/internal/config"
)

// Task is one follow-up work item.
type Task struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	TargetGroup string `json:"target_group"`
}

// TaskTracker creates follow-up tasks in an external tracker.
type TaskTracker interface {
	CreateTask(ctx context.Context, task Task) error
}

// Noop discards tasks. Used when the integration is disabled.
type Noop struct{}

func (Noop) CreateTask(ctx context.Context, task Task) error { return nil }

// HTTPTracker posts tasks to a REST tracker endpoint.
type HTTPTracker struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPTracker creates a tracker client from configuration.
func NewHTTPTracker(cfg config.TaskTrackerConfig) *HTTPTracker {
	return &HTTPTracker{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: config.DefaultHTTPTimeout},
	}
}

// CreateTask files one task. A non-2xx response is an error; the caller
// decides whether to log and continue.
func (t *HTTPTracker) CreateTask(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/tasks", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build task request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("task creation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("task creation returned status %d", resp.StatusCode)
	}
	return nil
}

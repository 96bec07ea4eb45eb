package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stivan622/jarvis-system/pkg/planner"
)

// Patch is a partial-update payload. Only the keys present are applied
// server-side; an explicit nil value nulls a nullable field.
type Patch map[string]any

// Client is the typed HTTP client for the REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient talks to the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// rooted wraps a payload in the API's root key envelope.
func rooted(root string, v any) map[string]any {
	return map[string]any{root: v}
}

// --- Schedule events ---

func (c *Client) ScheduleEvents(ctx context.Context, dateFrom, dateTo string) ([]planner.ScheduleEvent, error) {
	path := fmt.Sprintf("/api/v1/schedule_events?date_from=%s&date_to=%s",
		url.QueryEscape(dateFrom), url.QueryEscape(dateTo))
	var events []planner.ScheduleEvent
	if err := c.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) CreateScheduleEvent(ctx context.Context, e planner.ScheduleEvent) (*planner.ScheduleEvent, error) {
	created := &planner.ScheduleEvent{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/schedule_events", rooted("schedule_event", e), created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *Client) UpdateScheduleEvent(ctx context.Context, id string, patch Patch) (*planner.ScheduleEvent, error) {
	updated := &planner.ScheduleEvent{}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/schedule_events/"+id, rooted("schedule_event", patch), updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) DeleteScheduleEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/schedule_events/"+id, nil, nil)
}

// --- Tasks ---

func (c *Client) Tasks(ctx context.Context, projectID string, thisWeek bool) ([]planner.Task, error) {
	q := url.Values{}
	if projectID != "" {
		q.Set("project_id", projectID)
	}
	if thisWeek {
		q.Set("this_week", "true")
	}
	path := "/api/v1/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var tasks []planner.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch Patch) (*planner.Task, error) {
	updated := &planner.Task{}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/tasks/"+id, rooted("task", patch), updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// --- Workspaces / projects (settings surfaces) ---

func (c *Client) Workspaces(ctx context.Context) ([]planner.Workspace, error) {
	var workspaces []planner.Workspace
	if err := c.do(ctx, http.MethodGet, "/api/v1/workspaces", nil, &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

func (c *Client) Projects(ctx context.Context, workspaceID string) ([]planner.Project, error) {
	path := "/api/v1/projects"
	if workspaceID != "" {
		path += "?workspace_id=" + url.QueryEscape(workspaceID)
	}
	var projects []planner.Project
	if err := c.do(ctx, http.MethodGet, path, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// --- Google calendar ---

func (c *Client) GoogleEvents(ctx context.Context, dateFrom, dateTo string) ([]planner.RemoteEvent, error) {
	path := fmt.Sprintf("/api/v1/google_calendar/events?date_from=%s&date_to=%s",
		url.QueryEscape(dateFrom), url.QueryEscape(dateTo))
	var events []planner.RemoteEvent
	if err := c.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GoogleAccounts(ctx context.Context) ([]planner.GoogleAccount, error) {
	var accounts []planner.GoogleAccount
	if err := c.do(ctx, http.MethodGet, "/api/v1/google_calendar/accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) GoogleAuthURL(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/google_calendar/auth_url", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

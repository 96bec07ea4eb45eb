package planner

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors surfaced to API callers.
var (
	ErrNameRequired     = errors.New("name is required")
	ErrTitleRequired    = errors.New("title is required")
	ErrStartOutOfRange  = errors.New("start_minutes must be within 0..1439")
	ErrDurationTooShort = errors.New("duration_minutes must be at least 15")
	ErrNotFound         = errors.New("not found")
)

// Workspace is the top-level grouping. Deleting one cascades through its
// projects and their tasks.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Workspace) Validate() error {
	if w.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// Project belongs to a workspace.
type Project struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Project) Validate() error {
	if p.Name == "" {
		return ErrNameRequired
	}
	if p.WorkspaceID == "" {
		return errors.New("workspace_id is required")
	}
	return nil
}

// Task belongs to a project and may nest one level under a parent task.
type Task struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	ParentTaskID *string   `json:"parent_task_id"`
	Title        string    `json:"title"`
	Done         bool      `json:"done"`
	ThisWeek     bool      `json:"this_week"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrTitleRequired
	}
	if t.ProjectID == "" {
		return errors.New("project_id is required")
	}
	return nil
}

// ScheduleEvent is a locally scheduled block on the week grid. Date is a
// naive wall-clock calendar day ("2006-01-02"); StartMinutes and
// DurationMinutes are minutes since that day's midnight. ProjectID and
// TaskID are optional links: deleting the referent nulls them out rather
// than deleting the event.
type ScheduleEvent struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Date            string    `json:"date"`
	StartMinutes    int       `json:"start_minutes"`
	DurationMinutes int       `json:"duration_minutes"`
	ProjectID       *string   `json:"project_id"`
	TaskID          *string   `json:"task_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (e *ScheduleEvent) Validate() error {
	if e.Title == "" {
		return ErrTitleRequired
	}
	if e.Date == "" {
		return errors.New("date is required")
	}
	if e.StartMinutes < 0 || e.StartMinutes >= 1440 {
		return ErrStartOutOfRange
	}
	if e.DurationMinutes < 15 {
		return ErrDurationTooShort
	}
	return nil
}

// EndMinutes returns the event's end as minutes since midnight.
func (e *ScheduleEvent) EndMinutes() int {
	return e.StartMinutes + e.DurationMinutes
}

// Linked reports whether the event carries a task reference, which makes
// its time count as task time in the availability summary.
func (e *ScheduleEvent) Linked() bool {
	return e.TaskID != nil && *e.TaskID != ""
}

// GoogleAccount is a connected Google account whose calendars can feed
// read-only events into the grid. Tokens are stored as issued.
type GoogleAccount struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PictureURL   string    `json:"picture_url"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GoogleCalendar is one calendar within an account. Only enabled
// calendars contribute events to the week view.
type GoogleCalendar struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	CalendarID string `json:"calendar_id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Enabled    bool   `json:"enabled"`
}

// RemoteEvent is a read-only event fetched from an external calendar,
// already converted to the grid's naive wall-clock fields. All-day
// events carry start 0 and duration 1440 with AllDay set.
type RemoteEvent struct {
	ID              string `json:"id"`
	CalendarID      string `json:"calendar_id"`
	CalendarName    string `json:"calendar_name,omitempty"`
	CalendarColor   string `json:"calendar_color,omitempty"`
	AccountEmail    string `json:"account_email,omitempty"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	StartMinutes    int    `json:"start_minutes"`
	DurationMinutes int    `json:"duration_minutes"`
	AllDay          bool   `json:"all_day"`
	MeetLink        string `json:"meet_link,omitempty"`
}

// TaskFilter narrows Tasks listings; zero value lists everything.
type TaskFilter struct {
	ProjectID string
	ThisWeek  *bool
}

func boolPtr(v bool) *bool { return &v }

// ThisWeekOnly is a convenience filter for the weekly task panel.
func ThisWeekOnly() TaskFilter { return TaskFilter{ThisWeek: boolPtr(true)} }

// NotFoundError wraps ErrNotFound with the entity kind and id.
func NotFoundError(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

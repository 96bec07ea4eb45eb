package planner

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists the planner model in SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	// Now is injectable so tests can pin timestamps.
	Now func() time.Time
}

// NewStore opens (creating if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// DELETE journal mode for immediate writes (no WAL)
	connStr := dbPath + "?_foreign_keys=on&_journal_mode=DELETE&_synchronous=FULL"
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection avoids pooling issues with sqlite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: db, Now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position INTEGER DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		name TEXT NOT NULL,
		position INTEGER DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		FOREIGN KEY (workspace_id) REFERENCES workspaces(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		parent_task_id TEXT,
		title TEXT NOT NULL,
		done INTEGER DEFAULT 0,
		this_week INTEGER DEFAULT 0,
		position INTEGER DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		FOREIGN KEY (parent_task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS schedule_events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		date TEXT NOT NULL,
		start_minutes INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		project_id TEXT,
		task_id TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE SET NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS google_accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		picture_url TEXT,
		access_token TEXT,
		refresh_token TEXT,
		token_expiry DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS google_calendars (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		calendar_id TEXT NOT NULL,
		name TEXT,
		color TEXT,
		enabled INTEGER DEFAULT 1,
		UNIQUE (account_id, calendar_id),
		FOREIGN KEY (account_id) REFERENCES google_accounts(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_projects_workspace ON projects(workspace_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id);
	CREATE INDEX IF NOT EXISTS idx_schedule_events_date ON schedule_events(date);
	CREATE INDEX IF NOT EXISTS idx_google_calendars_account ON google_calendars(account_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// stamp mints an id if missing and maintains timestamps.
func (s *Store) stamp(id *string, createdAt *time.Time, updatedAt *time.Time) {
	now := s.Now()
	if *id == "" {
		*id = uuid.New().String()
	}
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// --- Workspace Operations ---

// SaveWorkspace inserts or updates a workspace. A missing id means
// create; the minted id is written back to w.
func (s *Store) SaveWorkspace(w *Workspace) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	// ON CONFLICT DO UPDATE instead of REPLACE so CASCADE deletes never fire
	_, err := s.db.Exec(`
		INSERT INTO workspaces (id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			updated_at = excluded.updated_at`,
		w.ID, w.Name, w.Position, w.CreatedAt, w.UpdatedAt)
	return err
}

// GetWorkspace retrieves a workspace by ID.
func (s *Store) GetWorkspace(id string) (*Workspace, error) {
	row := s.db.QueryRow(`SELECT id, name, position, created_at, updated_at FROM workspaces WHERE id = ?`, id)
	w := &Workspace{}
	err := row.Scan(&w.ID, &w.Name, &w.Position, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundError("workspace", id)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Workspaces retrieves all workspaces in display order.
func (s *Store) Workspaces() ([]*Workspace, error) {
	rows, err := s.db.Query(`SELECT id, name, position, created_at, updated_at FROM workspaces ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*Workspace
	for rows.Next() {
		w := &Workspace{}
		if err := rows.Scan(&w.ID, &w.Name, &w.Position, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, rows.Err()
}

// DeleteWorkspace deletes a workspace and, via CASCADE, its projects and
// their tasks.
func (s *Store) DeleteWorkspace(id string) error {
	return s.deleteByID("workspaces", "workspace", id)
}

// --- Project Operations ---

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(p *Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	_, err := s.db.Exec(`
		INSERT INTO projects (id, workspace_id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			name = excluded.name,
			position = excluded.position,
			updated_at = excluded.updated_at`,
		p.ID, p.WorkspaceID, p.Name, p.Position, p.CreatedAt, p.UpdatedAt)
	return err
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(id string) (*Project, error) {
	row := s.db.QueryRow(`SELECT id, workspace_id, name, position, created_at, updated_at FROM projects WHERE id = ?`, id)
	p := &Project{}
	err := row.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Position, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundError("project", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Projects retrieves projects, optionally limited to one workspace.
func (s *Store) Projects(workspaceID string) ([]*Project, error) {
	query := `SELECT id, workspace_id, name, position, created_at, updated_at FROM projects`
	var args []any
	if workspaceID != "" {
		query += ` WHERE workspace_id = ?`
		args = append(args, workspaceID)
	}
	query += ` ORDER BY position, name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Position, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject deletes a project and its tasks; schedule events linked
// to it keep existing with the link nulled.
func (s *Store) DeleteProject(id string) error {
	return s.deleteByID("projects", "project", id)
}

// --- Task Operations ---

// SaveTask inserts or updates a task.
func (s *Store) SaveTask(t *Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, project_id, parent_task_id, title, done, this_week, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			parent_task_id = excluded.parent_task_id,
			title = excluded.title,
			done = excluded.done,
			this_week = excluded.this_week,
			position = excluded.position,
			updated_at = excluded.updated_at`,
		t.ID, t.ProjectID, t.ParentTaskID, t.Title, t.Done, t.ThisWeek, t.Position, t.CreatedAt, t.UpdatedAt)
	return err
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT id, project_id, parent_task_id, title, done, this_week, position, created_at, updated_at FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundError("task", id)
	}
	return t, err
}

// Tasks retrieves tasks matching the filter, subtasks included.
func (s *Store) Tasks(filter TaskFilter) ([]*Task, error) {
	query := `SELECT id, project_id, parent_task_id, title, done, this_week, position, created_at, updated_at FROM tasks`
	var conds []string
	var args []any
	if filter.ProjectID != "" {
		conds = append(conds, `project_id = ?`)
		args = append(args, filter.ProjectID)
	}
	if filter.ThisWeek != nil {
		conds = append(conds, `this_week = ?`)
		args = append(args, *filter.ThisWeek)
	}
	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY position, created_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DeleteTask deletes a task and, via CASCADE, its subtasks; schedule
// events linked to it keep existing with the link nulled.
func (s *Store) DeleteTask(id string) error {
	return s.deleteByID("tasks", "task", id)
}

// --- Schedule Event Operations ---

// SaveScheduleEvent inserts or updates a schedule event.
func (s *Store) SaveScheduleEvent(e *ScheduleEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	_, err := s.db.Exec(`
		INSERT INTO schedule_events (id, title, date, start_minutes, duration_minutes, project_id, task_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			date = excluded.date,
			start_minutes = excluded.start_minutes,
			duration_minutes = excluded.duration_minutes,
			project_id = excluded.project_id,
			task_id = excluded.task_id,
			updated_at = excluded.updated_at`,
		e.ID, e.Title, e.Date, e.StartMinutes, e.DurationMinutes, e.ProjectID, e.TaskID, e.CreatedAt, e.UpdatedAt)
	return err
}

// GetScheduleEvent retrieves a schedule event by ID.
func (s *Store) GetScheduleEvent(id string) (*ScheduleEvent, error) {
	row := s.db.QueryRow(`SELECT id, title, date, start_minutes, duration_minutes, project_id, task_id, created_at, updated_at FROM schedule_events WHERE id = ?`, id)
	e, err := scanScheduleEvent(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundError("schedule event", id)
	}
	return e, err
}

// ScheduleEvents retrieves events within an inclusive date range,
// ordered for the grid. Empty bounds are open-ended.
func (s *Store) ScheduleEvents(dateFrom, dateTo string) ([]*ScheduleEvent, error) {
	query := `SELECT id, title, date, start_minutes, duration_minutes, project_id, task_id, created_at, updated_at FROM schedule_events`
	var conds []string
	var args []any
	if dateFrom != "" {
		conds = append(conds, `date >= ?`)
		args = append(args, dateFrom)
	}
	if dateTo != "" {
		conds = append(conds, `date <= ?`)
		args = append(args, dateTo)
	}
	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY date, start_minutes`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*ScheduleEvent
	for rows.Next() {
		e, err := scanScheduleEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteScheduleEvent deletes a schedule event.
func (s *Store) DeleteScheduleEvent(id string) error {
	return s.deleteByID("schedule_events", "schedule event", id)
}

// --- Google Account Operations ---

// SaveGoogleAccount upserts an account keyed by email, so reconnecting
// the same account refreshes tokens instead of duplicating it. The
// stored id is written back to a.
func (s *Store) SaveGoogleAccount(a *GoogleAccount) error {
	if a.Email == "" {
		return fmt.Errorf("google account: %w", ErrNameRequired)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		var existing string
		err := s.db.QueryRow(`SELECT id FROM google_accounts WHERE email = ?`, a.Email).Scan(&existing)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		a.ID = existing
	}
	s.stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	_, err := s.db.Exec(`
		INSERT INTO google_accounts (id, email, name, picture_url, access_token, refresh_token, token_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			picture_url = excluded.picture_url,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expiry = excluded.token_expiry,
			updated_at = excluded.updated_at`,
		a.ID, a.Email, a.Name, a.PictureURL, a.AccessToken, a.RefreshToken, a.TokenExpiry, a.CreatedAt, a.UpdatedAt)
	return err
}

// GetGoogleAccount retrieves an account by ID.
func (s *Store) GetGoogleAccount(id string) (*GoogleAccount, error) {
	row := s.db.QueryRow(`SELECT id, email, name, picture_url, access_token, refresh_token, token_expiry, created_at, updated_at FROM google_accounts WHERE id = ?`, id)
	a, err := scanGoogleAccount(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundError("google account", id)
	}
	return a, err
}

// GoogleAccounts retrieves all connected accounts.
func (s *Store) GoogleAccounts() ([]*GoogleAccount, error) {
	rows, err := s.db.Query(`SELECT id, email, name, picture_url, access_token, refresh_token, token_expiry, created_at, updated_at FROM google_accounts ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*GoogleAccount
	for rows.Next() {
		a, err := scanGoogleAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteGoogleAccount deletes an account and, via CASCADE, its
// calendars.
func (s *Store) DeleteGoogleAccount(id string) error {
	return s.deleteByID("google_accounts", "google account", id)
}

// --- Google Calendar Operations ---

// SaveGoogleCalendar upserts a calendar within an account. A re-listed
// calendar keeps its enabled flag; only name and color refresh.
func (s *Store) SaveGoogleCalendar(c *GoogleCalendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO google_calendars (id, account_id, calendar_id, name, color, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, calendar_id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color`,
		c.ID, c.AccountID, c.CalendarID, c.Name, c.Color, c.Enabled)
	return err
}

// GoogleCalendars retrieves the calendars of an account.
func (s *Store) GoogleCalendars(accountID string) ([]*GoogleCalendar, error) {
	rows, err := s.db.Query(`SELECT id, account_id, calendar_id, name, color, enabled FROM google_calendars WHERE account_id = ? ORDER BY name`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calendars []*GoogleCalendar
	for rows.Next() {
		c := &GoogleCalendar{}
		var name, color sql.NullString
		if err := rows.Scan(&c.ID, &c.AccountID, &c.CalendarID, &name, &color, &c.Enabled); err != nil {
			return nil, err
		}
		c.Name = name.String
		c.Color = color.String
		calendars = append(calendars, c)
	}
	return calendars, rows.Err()
}

// SetGoogleCalendarEnabled toggles whether a calendar feeds the grid.
func (s *Store) SetGoogleCalendarEnabled(accountID, calendarID string, enabled bool) error {
	res, err := s.db.Exec(`UPDATE google_calendars SET enabled = ? WHERE account_id = ? AND calendar_id = ?`,
		enabled, accountID, calendarID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFoundError("google calendar", calendarID)
	}
	return nil
}

// --- Scan helpers ---

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	t := &Task{}
	var parent sql.NullString
	err := row.Scan(&t.ID, &t.ProjectID, &parent, &t.Title, &t.Done, &t.ThisWeek, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		t.ParentTaskID = &parent.String
	}
	return t, nil
}

func scanScheduleEvent(row scanner) (*ScheduleEvent, error) {
	e := &ScheduleEvent{}
	var projectID, taskID sql.NullString
	err := row.Scan(&e.ID, &e.Title, &e.Date, &e.StartMinutes, &e.DurationMinutes, &projectID, &taskID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if projectID.Valid {
		e.ProjectID = &projectID.String
	}
	if taskID.Valid {
		e.TaskID = &taskID.String
	}
	return e, nil
}

func scanGoogleAccount(row scanner) (*GoogleAccount, error) {
	a := &GoogleAccount{}
	var name, pictureURL, accessToken, refreshToken sql.NullString
	var tokenExpiry sql.NullTime
	err := row.Scan(&a.ID, &a.Email, &name, &pictureURL, &accessToken, &refreshToken, &tokenExpiry, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Name = name.String
	a.PictureURL = pictureURL.String
	a.AccessToken = accessToken.String
	a.RefreshToken = refreshToken.String
	if tokenExpiry.Valid {
		a.TokenExpiry = tokenExpiry.Time
	}
	return a, nil
}

func (s *Store) deleteByID(table, kind, id string) error {
	res, err := s.db.Exec(`DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFoundError(kind, id)
	}
	return nil
}

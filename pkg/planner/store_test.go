package planner

import (
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	s.Now = func() time.Time {
		return time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func seedWorkspace(t *testing.T, s *Store, name string) *Workspace {
	t.Helper()
	w := &Workspace{Name: name}
	if err := s.SaveWorkspace(w); err != nil {
		t.Fatalf("SaveWorkspace: %v", err)
	}
	return w
}

func seedProject(t *testing.T, s *Store, workspaceID, name string) *Project {
	t.Helper()
	p := &Project{WorkspaceID: workspaceID, Name: name}
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	return p
}

func seedTask(t *testing.T, s *Store, projectID, title string) *Task {
	t.Helper()
	task := &Task{ProjectID: projectID, Title: title}
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	return task
}

func TestWorkspaceRoundtrip(t *testing.T) {
	s := newTestStore(t)

	w := seedWorkspace(t, s, "Personal")
	if w.ID == "" {
		t.Fatal("SaveWorkspace did not mint an id")
	}
	if w.CreatedAt.IsZero() || w.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}

	got, err := s.GetWorkspace(w.ID)
	if err != nil {
		t.Fatalf("GetWorkspace: %v", err)
	}
	if got.Name != "Personal" {
		t.Errorf("Name = %q, want Personal", got.Name)
	}

	got.Name = "Work"
	if err := s.SaveWorkspace(got); err != nil {
		t.Fatalf("SaveWorkspace update: %v", err)
	}
	again, err := s.GetWorkspace(w.ID)
	if err != nil {
		t.Fatalf("GetWorkspace after update: %v", err)
	}
	if again.Name != "Work" {
		t.Errorf("Name after update = %q, want Work", again.Name)
	}

	all, err := s.Workspaces()
	if err != nil {
		t.Fatalf("Workspaces: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d workspaces, want 1 (update must not duplicate)", len(all))
	}
}

func TestWorkspaceValidation(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveWorkspace(&Workspace{}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("SaveWorkspace(empty name) = %v, want ErrNameRequired", err)
	}
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	s := newTestStore(t)
	w := seedWorkspace(t, s, "Personal")
	p := seedProject(t, s, w.ID, "Chores")
	task := seedTask(t, s, p.ID, "Laundry")

	if err := s.DeleteWorkspace(w.ID); err != nil {
		t.Fatalf("DeleteWorkspace: %v", err)
	}
	if _, err := s.GetProject(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("project survived workspace delete: %v", err)
	}
	if _, err := s.GetTask(task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("task survived workspace delete: %v", err)
	}
}

func TestDeleteTaskCascadesSubtasksAndNullsEvents(t *testing.T) {
	s := newTestStore(t)
	w := seedWorkspace(t, s, "Personal")
	p := seedProject(t, s, w.ID, "Chores")
	parent := seedTask(t, s, p.ID, "Laundry")
	sub := &Task{ProjectID: p.ID, ParentTaskID: &parent.ID, Title: "Fold"}
	if err := s.SaveTask(sub); err != nil {
		t.Fatalf("SaveTask subtask: %v", err)
	}

	ev := &ScheduleEvent{Title: "Laundry block", Date: "2026-03-03", StartMinutes: 600, DurationMinutes: 60, TaskID: &parent.ID}
	if err := s.SaveScheduleEvent(ev); err != nil {
		t.Fatalf("SaveScheduleEvent: %v", err)
	}

	if err := s.DeleteTask(parent.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.GetTask(sub.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("subtask survived parent delete: %v", err)
	}
	got, err := s.GetScheduleEvent(ev.ID)
	if err != nil {
		t.Fatalf("event deleted with task: %v", err)
	}
	if got.TaskID != nil {
		t.Errorf("TaskID = %v, want nulled after task delete", *got.TaskID)
	}
}

func TestScheduleEventValidation(t *testing.T) {
	s := newTestStore(t)
	tests := []struct {
		name string
		ev   ScheduleEvent
		want error
	}{
		{"missing title", ScheduleEvent{Date: "2026-03-03", StartMinutes: 0, DurationMinutes: 30}, ErrTitleRequired},
		{"negative start", ScheduleEvent{Title: "x", Date: "2026-03-03", StartMinutes: -15, DurationMinutes: 30}, ErrStartOutOfRange},
		{"start past midnight", ScheduleEvent{Title: "x", Date: "2026-03-03", StartMinutes: 1440, DurationMinutes: 30}, ErrStartOutOfRange},
		{"too short", ScheduleEvent{Title: "x", Date: "2026-03-03", StartMinutes: 0, DurationMinutes: 10}, ErrDurationTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.ev
			if err := s.SaveScheduleEvent(&ev); !errors.Is(err, tt.want) {
				t.Errorf("SaveScheduleEvent = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestScheduleEventsDateRange(t *testing.T) {
	s := newTestStore(t)
	for _, e := range []ScheduleEvent{
		{Title: "mon late", Date: "2026-03-02", StartMinutes: 900, DurationMinutes: 30},
		{Title: "mon early", Date: "2026-03-02", StartMinutes: 600, DurationMinutes: 30},
		{Title: "next week", Date: "2026-03-09", StartMinutes: 600, DurationMinutes: 30},
		{Title: "sun", Date: "2026-03-08", StartMinutes: 600, DurationMinutes: 30},
	} {
		ev := e
		if err := s.SaveScheduleEvent(&ev); err != nil {
			t.Fatalf("SaveScheduleEvent %q: %v", e.Title, err)
		}
	}

	events, err := s.ScheduleEvents("2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("ScheduleEvents: %v", err)
	}
	var titles []string
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	want := []string{"mon early", "mon late", "sun"}
	if len(titles) != len(want) {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q (date,start order)", i, titles[i], want[i])
		}
	}
}

func TestTaskFilters(t *testing.T) {
	s := newTestStore(t)
	w := seedWorkspace(t, s, "Personal")
	p1 := seedProject(t, s, w.ID, "Chores")
	p2 := seedProject(t, s, w.ID, "Reading")
	seedTask(t, s, p1.ID, "Laundry")
	weekly := &Task{ProjectID: p2.ID, Title: "Finish novel", ThisWeek: true}
	if err := s.SaveTask(weekly); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	byProject, err := s.Tasks(TaskFilter{ProjectID: p1.ID})
	if err != nil {
		t.Fatalf("Tasks by project: %v", err)
	}
	if len(byProject) != 1 || byProject[0].Title != "Laundry" {
		t.Errorf("project filter returned %+v", byProject)
	}

	thisWeek, err := s.Tasks(ThisWeekOnly())
	if err != nil {
		t.Fatalf("Tasks this week: %v", err)
	}
	if len(thisWeek) != 1 || thisWeek[0].Title != "Finish novel" {
		t.Errorf("this_week filter returned %+v", thisWeek)
	}
}

func TestGoogleAccountUpsertByEmail(t *testing.T) {
	s := newTestStore(t)
	first := &GoogleAccount{Email: "me@example.com", Name: "Me", AccessToken: "tok1"}
	if err := s.SaveGoogleAccount(first); err != nil {
		t.Fatalf("SaveGoogleAccount: %v", err)
	}

	second := &GoogleAccount{Email: "me@example.com", Name: "Me", AccessToken: "tok2"}
	if err := s.SaveGoogleAccount(second); err != nil {
		t.Fatalf("SaveGoogleAccount reconnect: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("reconnect minted new id %s, want %s", second.ID, first.ID)
	}

	accounts, err := s.GoogleAccounts()
	if err != nil {
		t.Fatalf("GoogleAccounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("got %d accounts, want 1", len(accounts))
	}
	if accounts[0].AccessToken != "tok2" {
		t.Errorf("AccessToken = %q, want refreshed tok2", accounts[0].AccessToken)
	}
}

func TestGoogleCalendarResyncKeepsEnabled(t *testing.T) {
	s := newTestStore(t)
	acct := &GoogleAccount{Email: "me@example.com"}
	if err := s.SaveGoogleAccount(acct); err != nil {
		t.Fatalf("SaveGoogleAccount: %v", err)
	}
	cal := &GoogleCalendar{AccountID: acct.ID, CalendarID: "primary", Name: "Me", Enabled: true}
	if err := s.SaveGoogleCalendar(cal); err != nil {
		t.Fatalf("SaveGoogleCalendar: %v", err)
	}
	if err := s.SetGoogleCalendarEnabled(acct.ID, "primary", false); err != nil {
		t.Fatalf("SetGoogleCalendarEnabled: %v", err)
	}

	// A later calendar listing re-saves the same calendar.
	resync := &GoogleCalendar{AccountID: acct.ID, CalendarID: "primary", Name: "Renamed", Enabled: true}
	if err := s.SaveGoogleCalendar(resync); err != nil {
		t.Fatalf("SaveGoogleCalendar resync: %v", err)
	}

	cals, err := s.GoogleCalendars(acct.ID)
	if err != nil {
		t.Fatalf("GoogleCalendars: %v", err)
	}
	if len(cals) != 1 {
		t.Fatalf("got %d calendars, want 1", len(cals))
	}
	if cals[0].Name != "Renamed" {
		t.Errorf("Name = %q, want Renamed", cals[0].Name)
	}
	if cals[0].Enabled {
		t.Error("resync re-enabled a calendar the user disabled")
	}
}

func TestDeleteGoogleAccountCascadesCalendars(t *testing.T) {
	s := newTestStore(t)
	acct := &GoogleAccount{Email: "me@example.com"}
	if err := s.SaveGoogleAccount(acct); err != nil {
		t.Fatalf("SaveGoogleAccount: %v", err)
	}
	if err := s.SaveGoogleCalendar(&GoogleCalendar{AccountID: acct.ID, CalendarID: "primary", Enabled: true}); err != nil {
		t.Fatalf("SaveGoogleCalendar: %v", err)
	}

	if err := s.DeleteGoogleAccount(acct.ID); err != nil {
		t.Fatalf("DeleteGoogleAccount: %v", err)
	}
	cals, err := s.GoogleCalendars(acct.ID)
	if err != nil {
		t.Fatalf("GoogleCalendars: %v", err)
	}
	if len(cals) != 0 {
		t.Errorf("calendars survived account delete: %+v", cals)
	}
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteWorkspace("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteWorkspace(missing) = %v, want ErrNotFound", err)
	}
	if err := s.DeleteScheduleEvent("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteScheduleEvent(missing) = %v, want ErrNotFound", err)
	}
	if _, err := s.GetWorkspace("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetWorkspace(missing) = %v, want ErrNotFound", err)
	}
}

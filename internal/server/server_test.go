package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stivan622/jarvis-system/internal/config"
	"github.com/stivan622/jarvis-system/pkg/planner"
	"github.com/stivan622/jarvis-system/pkg/providers"
)

func newTestServer(t *testing.T) (*Server, *planner.Store) {
	t.Helper()
	store, err := planner.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	store.Now = func() time.Time {
		return time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	}

	cfg := &config.Config{
		ListenAddr:          "127.0.0.1:0",
		APIBaseURL:          "http://127.0.0.1:0",
		SyncIntervalMinutes: 15,
		WorkdayStartMinutes: 600,
		WorkdayEndMinutes:   1200,
	}
	return New(cfg, store), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestWorkspaceCRUD(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/workspaces", map[string]any{
		"workspace": map[string]any{"name": "Personal"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[planner.Workspace](t, rec)
	if created.ID == "" || created.Name != "Personal" {
		t.Fatalf("created = %+v", created)
	}

	rec = doJSON(t, h, "GET", "/api/v1/workspaces", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decodeBody[[]planner.Workspace](t, rec)
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	rec = doJSON(t, h, "PATCH", "/api/v1/workspaces/"+created.ID, map[string]any{
		"workspace": map[string]any{"name": "Work"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[planner.Workspace](t, rec); got.Name != "Work" {
		t.Errorf("patched name = %q", got.Name)
	}

	rec = doJSON(t, h, "DELETE", "/api/v1/workspaces/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, h, "GET", "/api/v1/workspaces/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestCreateValidationError(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), "POST", "/api/v1/schedule_events", map[string]any{
		"schedule_event": map[string]any{
			"title": "too short", "date": "2026-03-03",
			"start_minutes": 600, "duration_minutes": 5,
		},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422; body %s", rec.Code, rec.Body.String())
	}
}

func TestMissingRootKey(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), "POST", "/api/v1/workspaces", map[string]any{
		"name": "No envelope",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEmptyListRendersBrackets(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), "GET", "/api/v1/schedule_events", nil)
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("empty list body = %q, want []", got)
	}
}

func TestScheduleEventDateFilterAndUnlink(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	w := &planner.Workspace{Name: "Personal"}
	if err := store.SaveWorkspace(w); err != nil {
		t.Fatal(err)
	}
	p := &planner.Project{WorkspaceID: w.ID, Name: "Chores"}
	if err := store.SaveProject(p); err != nil {
		t.Fatal(err)
	}
	task := &planner.Task{ProjectID: p.ID, Title: "Laundry"}
	if err := store.SaveTask(task); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, "POST", "/api/v1/schedule_events", map[string]any{
		"schedule_event": map[string]any{
			"title": "Laundry block", "date": "2026-03-03",
			"start_minutes": 600, "duration_minutes": 60,
			"task_id": task.ID,
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	ev := decodeBody[planner.ScheduleEvent](t, rec)
	if ev.TaskID == nil || *ev.TaskID != task.ID {
		t.Fatalf("TaskID = %v", ev.TaskID)
	}

	rec = doJSON(t, h, "GET", "/api/v1/schedule_events?date_from=2026-03-02&date_to=2026-03-08", nil)
	if list := decodeBody[[]planner.ScheduleEvent](t, rec); len(list) != 1 {
		t.Errorf("in-range list = %+v", list)
	}
	rec = doJSON(t, h, "GET", "/api/v1/schedule_events?date_from=2026-03-09&date_to=2026-03-15", nil)
	if list := decodeBody[[]planner.ScheduleEvent](t, rec); len(list) != 0 {
		t.Errorf("out-of-range list = %+v", list)
	}

	// Explicit null unlinks; absent field leaves the link alone.
	rec = doJSON(t, h, "PATCH", "/api/v1/schedule_events/"+ev.ID, map[string]any{
		"schedule_event": map[string]any{"start_minutes": 630},
	})
	if got := decodeBody[planner.ScheduleEvent](t, rec); got.TaskID == nil {
		t.Error("absent task_id field cleared the link")
	}
	rec = doJSON(t, h, "PATCH", "/api/v1/schedule_events/"+ev.ID, map[string]any{
		"schedule_event": map[string]any{"task_id": nil},
	})
	if got := decodeBody[planner.ScheduleEvent](t, rec); got.TaskID != nil {
		t.Errorf("explicit null did not unlink: %v", *got.TaskID)
	}
}

func TestTaskThisWeekFilter(t *testing.T) {
	s, store := newTestServer(t)
	w := &planner.Workspace{Name: "Personal"}
	store.SaveWorkspace(w)
	p := &planner.Project{WorkspaceID: w.ID, Name: "Chores"}
	store.SaveProject(p)
	store.SaveTask(&planner.Task{ProjectID: p.ID, Title: "Someday"})
	store.SaveTask(&planner.Task{ProjectID: p.ID, Title: "Now", ThisWeek: true})

	rec := doJSON(t, s.Handler(), "GET", "/api/v1/tasks?this_week=true", nil)
	list := decodeBody[[]planner.Task](t, rec)
	if len(list) != 1 || list[0].Title != "Now" {
		t.Errorf("this_week list = %+v", list)
	}
}

// stubSource fakes an external calendar feed.
type stubSource struct {
	events map[string][]planner.RemoteEvent
	errs   map[string]error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Calendars(ctx context.Context) ([]providers.Calendar, error) {
	return nil, nil
}

func (s *stubSource) Events(ctx context.Context, calendarID, dateFrom, dateTo string) ([]planner.RemoteEvent, error) {
	if err := s.errs[calendarID]; err != nil {
		return nil, err
	}
	return s.events[calendarID], nil
}

func seedGoogleAccount(t *testing.T, store *planner.Store) *planner.GoogleAccount {
	t.Helper()
	acct := &planner.GoogleAccount{Email: "me@example.com"}
	if err := store.SaveGoogleAccount(acct); err != nil {
		t.Fatal(err)
	}
	return acct
}

func TestGoogleEventsAggregation(t *testing.T) {
	s, store := newTestServer(t)
	acct := seedGoogleAccount(t, store)
	store.SaveGoogleCalendar(&planner.GoogleCalendar{AccountID: acct.ID, CalendarID: "work", Name: "Work", Color: "#4285f4", Enabled: true})
	store.SaveGoogleCalendar(&planner.GoogleCalendar{AccountID: acct.ID, CalendarID: "spam", Enabled: false})

	stub := &stubSource{events: map[string][]planner.RemoteEvent{
		"work": {{ID: "g1", CalendarID: "work", Title: "Standup", Date: "2026-03-03", StartMinutes: 600, DurationMinutes: 30}},
		"spam": {{ID: "g9", CalendarID: "spam", Title: "Noise", Date: "2026-03-03", StartMinutes: 600, DurationMinutes: 30}},
	}}
	s.google.newSource = func(ctx context.Context, acct *planner.GoogleAccount) providers.Source { return stub }

	rec := doJSON(t, s.Handler(), "GET", "/api/v1/google_calendar/events?date_from=2026-03-02&date_to=2026-03-08", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decodeBody[[]planner.RemoteEvent](t, rec)
	if len(list) != 1 {
		t.Fatalf("list = %+v (disabled calendar must be skipped)", list)
	}
	if list[0].ID != "g1" || list[0].CalendarColor != "#4285f4" {
		t.Errorf("event = %+v, want g1 with calendar color attached", list[0])
	}
	if list[0].CalendarName != "Work" || list[0].AccountEmail != "me@example.com" {
		t.Errorf("event = %+v, want calendar name and account email attached", list[0])
	}
}

func TestGoogleEventsFallsBackToCache(t *testing.T) {
	s, store := newTestServer(t)
	acct := seedGoogleAccount(t, store)
	store.SaveGoogleCalendar(&planner.GoogleCalendar{AccountID: acct.ID, CalendarID: "work", Enabled: true})

	stub := &stubSource{events: map[string][]planner.RemoteEvent{
		"work": {{ID: "g1", CalendarID: "work", Title: "Standup", Date: "2026-03-03", StartMinutes: 600, DurationMinutes: 30}},
	}}
	s.google.newSource = func(ctx context.Context, acct *planner.GoogleAccount) providers.Source { return stub }

	// Warm the cache, then break the feed.
	const path = "/api/v1/google_calendar/events?date_from=2026-03-02&date_to=2026-03-08"
	doJSON(t, s.Handler(), "GET", path, nil)
	stub.errs = map[string]error{"work": fmt.Errorf("google is down")}

	rec := doJSON(t, s.Handler(), "GET", path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when the feed is down", rec.Code)
	}
	list := decodeBody[[]planner.RemoteEvent](t, rec)
	if len(list) != 1 || list[0].ID != "g1" {
		t.Errorf("cached list = %+v", list)
	}

	// A different week has no cache; still 200 with an empty list.
	rec = doJSON(t, s.Handler(), "GET", "/api/v1/google_calendar/events?date_from=2026-03-09&date_to=2026-03-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if list := decodeBody[[]planner.RemoteEvent](t, rec); len(list) != 0 {
		t.Errorf("uncached list = %+v, want empty", list)
	}
}

func TestGoogleEventsNoAccounts(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), "GET", "/api/v1/google_calendar/events?date_from=2026-03-02&date_to=2026-03-08", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if list := decodeBody[[]planner.RemoteEvent](t, rec); len(list) != 0 {
		t.Errorf("list = %+v, want empty", list)
	}
}

func TestToggleCalendar(t *testing.T) {
	s, store := newTestServer(t)
	acct := seedGoogleAccount(t, store)
	store.SaveGoogleCalendar(&planner.GoogleCalendar{AccountID: acct.ID, CalendarID: "work", Enabled: true})

	rec := doJSON(t, s.Handler(), "PATCH",
		"/api/v1/google_calendar/accounts/"+acct.ID+"/calendars/work",
		map[string]any{"calendar": map[string]any{"enabled": false}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	cals, err := store.GoogleCalendars(acct.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cals) != 1 || cals[0].Enabled {
		t.Errorf("calendar = %+v, want disabled", cals)
	}
}

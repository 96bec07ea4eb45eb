package stores

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stivan622/jarvis-system/pkg/planner"
)

func seededStore(t *testing.T, handler http.Handler, events ...planner.ScheduleEvent) *ScheduleStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewScheduleStore(NewClient(srv.URL))
	s.events = events
	return s
}

func okEvent(w http.ResponseWriter, e planner.ScheduleEvent) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(e)
}

func failAll(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
}

func TestScheduleStoreMoveOptimisticThenConfirm(t *testing.T) {
	ev := planner.ScheduleEvent{ID: "e1", Title: "Gym", Date: "2026-03-02", StartMinutes: 600, DurationMinutes: 60}

	var patched Patch
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]Patch
		json.NewDecoder(r.Body).Decode(&body)
		patched = body["schedule_event"]
		server := ev
		server.Date = "2026-03-04"
		server.StartMinutes = 720
		okEvent(w, server)
	})
	s := seededStore(t, handler, ev)

	changed := 0
	s.OnChange(func() { changed++ })

	m := s.Move("e1", "2026-03-04", 720, 60)

	// The speculative change is visible before any network happens.
	got, _ := s.Find("e1")
	if got.Date != "2026-03-04" || got.StartMinutes != 720 {
		t.Fatalf("speculative event = %+v", got)
	}
	if changed != 1 {
		t.Errorf("changed = %d, want 1 notification from the speculative apply", changed)
	}

	outcome := m(context.Background())
	if outcome.Err != nil {
		t.Fatalf("outcome err: %v", outcome.Err)
	}
	outcome.Apply()

	if patched["start_minutes"] != float64(720) {
		t.Errorf("server saw patch %+v", patched)
	}
	got, _ = s.Find("e1")
	if got.StartMinutes != 720 {
		t.Errorf("confirmed event = %+v", got)
	}
}

func TestScheduleStoreMoveRevertsOnFailure(t *testing.T) {
	ev := planner.ScheduleEvent{ID: "e1", Title: "Gym", Date: "2026-03-02", StartMinutes: 600, DurationMinutes: 60}
	s := seededStore(t, http.HandlerFunc(failAll), ev)

	m := s.Move("e1", "2026-03-04", 720, 60)
	outcome := m(context.Background())
	if outcome.Err == nil {
		t.Fatal("expected an error outcome")
	}
	if !strings.Contains(outcome.Err.Error(), "boom") {
		t.Errorf("err = %v, want server message surfaced", outcome.Err)
	}
	outcome.Apply()

	got, _ := s.Find("e1")
	if got.Date != "2026-03-02" || got.StartMinutes != 600 {
		t.Errorf("event after revert = %+v, want original placement", got)
	}
}

func TestScheduleStoreCreateIsPessimistic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]planner.ScheduleEvent
		json.NewDecoder(r.Body).Decode(&body)
		created := body["schedule_event"]
		created.ID = "server-id"
		w.WriteHeader(http.StatusCreated)
		okEvent(w, created)
	})
	s := seededStore(t, handler)

	m := s.Create(planner.ScheduleEvent{Title: "New", Date: "2026-03-03", StartMinutes: 600, DurationMinutes: 30})
	if len(s.Events()) != 0 {
		t.Fatal("create applied speculatively; it must wait for the server id")
	}

	outcome := m(context.Background())
	if outcome.Err != nil {
		t.Fatalf("outcome err: %v", outcome.Err)
	}
	outcome.Apply()

	events := s.Events()
	if len(events) != 1 || events[0].ID != "server-id" {
		t.Errorf("events = %+v", events)
	}
}

func TestScheduleStoreDeleteRevertsInPlace(t *testing.T) {
	a := planner.ScheduleEvent{ID: "a", Title: "A", Date: "2026-03-02", StartMinutes: 600, DurationMinutes: 30}
	b := planner.ScheduleEvent{ID: "b", Title: "B", Date: "2026-03-02", StartMinutes: 700, DurationMinutes: 30}
	c := planner.ScheduleEvent{ID: "c", Title: "C", Date: "2026-03-02", StartMinutes: 800, DurationMinutes: 30}
	s := seededStore(t, http.HandlerFunc(failAll), a, b, c)

	m := s.Delete("b")
	if len(s.Events()) != 2 {
		t.Fatalf("optimistic delete left %d events", len(s.Events()))
	}

	outcome := m(context.Background())
	if outcome.Err == nil {
		t.Fatal("expected an error outcome")
	}
	outcome.Apply()

	events := s.Events()
	if len(events) != 3 || events[1].ID != "b" {
		t.Errorf("events after revert = %+v, want b restored at index 1", events)
	}
}

func TestScheduleStoreUpdateUnknownID(t *testing.T) {
	s := seededStore(t, http.HandlerFunc(failAll))
	outcome := s.Move("ghost", "2026-03-04", 720, 60)(context.Background())
	if outcome.Err == nil {
		t.Fatal("expected not-found outcome")
	}
	outcome.Apply() // must be a safe no-op
}

func TestGoogleCalendarStoreLoadClearsOnFailure(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode([]planner.RemoteEvent{
				{ID: "g1", Title: "Standup", Date: "2026-03-03", StartMinutes: 600, DurationMinutes: 30},
			})
			return
		}
		failAll(w, r)
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewGoogleCalendarStore(NewClient(srv.URL))

	outcome := s.Load("2026-03-02", "2026-03-08")(context.Background())
	if outcome.Err != nil {
		t.Fatalf("first load err: %v", outcome.Err)
	}
	outcome.Apply()
	if len(s.Events()) != 1 {
		t.Fatalf("events = %+v", s.Events())
	}

	outcome = s.Load("2026-03-02", "2026-03-08")(context.Background())
	if outcome.Err == nil {
		t.Fatal("expected an error outcome")
	}
	outcome.Apply()
	if len(s.Events()) != 0 {
		t.Errorf("events after failed load = %+v, want empty", s.Events())
	}
}

func TestTaskStoreToggleDone(t *testing.T) {
	task := planner.Task{ID: "t1", ProjectID: "p1", Title: "Laundry"}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		updated := task
		updated.Done = true
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewTaskStore(NewClient(srv.URL))
	s.tasks = []planner.Task{task}

	m := s.ToggleDone("t1")
	if got, _ := s.Find("t1"); !got.Done {
		t.Fatal("toggle not applied speculatively")
	}

	outcome := m(context.Background())
	if outcome.Err != nil {
		t.Fatalf("outcome err: %v", outcome.Err)
	}
	outcome.Apply()
	if got, _ := s.Find("t1"); !got.Done {
		t.Error("confirmed task not done")
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stivan622/jarvis-system/internal/config"
	"github.com/stivan622/jarvis-system/pkg/planner"
)

// Server is the REST API over the planner store plus the Google
// calendar endpoints. All local-event mutations go through here; the
// external feed is read-only.
type Server struct {
	cfg    *config.Config
	store  *planner.Store
	google *googleService
	mux    *http.ServeMux
	http   *http.Server
	cron   *cron.Cron
}

// New wires the routes. The returned server is not listening yet.
func New(cfg *config.Config, store *planner.Store) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		google: newGoogleService(cfg, store),
		mux:    http.NewServeMux(),
		cron:   cron.New(),
	}
	s.routes()
	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/v1/workspaces", s.listWorkspaces)
	s.mux.HandleFunc("POST /api/v1/workspaces", s.createWorkspace)
	s.mux.HandleFunc("GET /api/v1/workspaces/{id}", s.getWorkspace)
	s.mux.HandleFunc("PATCH /api/v1/workspaces/{id}", s.updateWorkspace)
	s.mux.HandleFunc("DELETE /api/v1/workspaces/{id}", s.deleteWorkspace)

	s.mux.HandleFunc("GET /api/v1/projects", s.listProjects)
	s.mux.HandleFunc("POST /api/v1/projects", s.createProject)
	s.mux.HandleFunc("GET /api/v1/projects/{id}", s.getProject)
	s.mux.HandleFunc("PATCH /api/v1/projects/{id}", s.updateProject)
	s.mux.HandleFunc("DELETE /api/v1/projects/{id}", s.deleteProject)

	s.mux.HandleFunc("GET /api/v1/tasks", s.listTasks)
	s.mux.HandleFunc("POST /api/v1/tasks", s.createTask)
	s.mux.HandleFunc("GET /api/v1/tasks/{id}", s.getTask)
	s.mux.HandleFunc("PATCH /api/v1/tasks/{id}", s.updateTask)
	s.mux.HandleFunc("DELETE /api/v1/tasks/{id}", s.deleteTask)

	s.mux.HandleFunc("GET /api/v1/schedule_events", s.listScheduleEvents)
	s.mux.HandleFunc("POST /api/v1/schedule_events", s.createScheduleEvent)
	s.mux.HandleFunc("GET /api/v1/schedule_events/{id}", s.getScheduleEvent)
	s.mux.HandleFunc("PATCH /api/v1/schedule_events/{id}", s.updateScheduleEvent)
	s.mux.HandleFunc("DELETE /api/v1/schedule_events/{id}", s.deleteScheduleEvent)

	s.mux.HandleFunc("GET /api/v1/google_calendar/auth_url", s.google.handleAuthURL)
	s.mux.HandleFunc("GET /api/v1/google_calendar/callback", s.google.handleCallback)
	s.mux.HandleFunc("GET /api/v1/google_calendar/accounts", s.google.handleListAccounts)
	s.mux.HandleFunc("DELETE /api/v1/google_calendar/accounts/{id}", s.google.handleDeleteAccount)
	s.mux.HandleFunc("GET /api/v1/google_calendar/accounts/{id}/calendars", s.google.handleListCalendars)
	s.mux.HandleFunc("PATCH /api/v1/google_calendar/accounts/{id}/calendars/{calendarID}", s.google.handleToggleCalendar)
	s.mux.HandleFunc("GET /api/v1/google_calendar/events", s.google.handleEvents)
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins listening and schedules the external-event cache
// refresh. Blocks until Shutdown or a listener error.
func (s *Server) Start() error {
	spec := fmt.Sprintf("@every %dm", s.cfg.SyncIntervalMinutes)
	if _, err := s.cron.AddFunc(spec, s.google.refreshCache); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}
	s.cron.Start()

	if s.cfg.SyncOnStartup {
		go s.google.refreshCache()
	}

	log.Printf("api server listening on %s", s.cfg.ListenAddr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the cron scheduler and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cron.Stop()
	return s.http.Shutdown(ctx)
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("failed to encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, planner.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, planner.ErrNameRequired),
		errors.Is(err, planner.ErrTitleRequired),
		errors.Is(err, planner.ErrStartOutOfRange),
		errors.Is(err, planner.ErrDurationTooShort):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeRoot unpacks a root-keyed request body ({"workspace": {...}})
// into dst.
func decodeRoot(r *http.Request, root string, dst any) error {
	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	raw, ok := envelope[root]
	if !ok {
		return fmt.Errorf("missing %q key in request body", root)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid %q payload: %w", root, err)
	}
	return nil
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// emptyList materializes nil slices so list endpoints render [] not
// null.
func emptyList[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

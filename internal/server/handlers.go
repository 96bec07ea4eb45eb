package server

import (
	"encoding/json"
	"net/http"

	"github.com/stivan622/jarvis-system/pkg/planner"
)

// --- Workspaces ---

func (s *Server) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := s.store.Workspaces()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyList(workspaces))
}

func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var ws planner.Workspace
	if err := decodeRoot(r, "workspace", &ws); err != nil {
		badRequest(w, err)
		return
	}
	ws.ID = ""
	if err := s.store.SaveWorkspace(&ws); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &ws)
}

func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.GetWorkspace(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) updateWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.GetWorkspace(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var patch struct {
		Name     *string `json:"name"`
		Position *int    `json:"position"`
	}
	if err := decodeRoot(r, "workspace", &patch); err != nil {
		badRequest(w, err)
		return
	}
	if patch.Name != nil {
		ws.Name = *patch.Name
	}
	if patch.Position != nil {
		ws.Position = *patch.Position
	}
	if err := s.store.SaveWorkspace(ws); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteWorkspace(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Projects ---

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.Projects(r.URL.Query().Get("workspace_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyList(projects))
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var p planner.Project
	if err := decodeRoot(r, "project", &p); err != nil {
		badRequest(w, err)
		return
	}
	p.ID = ""
	if err := s.store.SaveProject(&p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &p)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var patch struct {
		Name        *string `json:"name"`
		WorkspaceID *string `json:"workspace_id"`
		Position    *int    `json:"position"`
	}
	if err := decodeRoot(r, "project", &patch); err != nil {
		badRequest(w, err)
		return
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.WorkspaceID != nil {
		p.WorkspaceID = *patch.WorkspaceID
	}
	if patch.Position != nil {
		p.Position = *patch.Position
	}
	if err := s.store.SaveProject(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProject(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Tasks ---

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	filter := planner.TaskFilter{ProjectID: r.URL.Query().Get("project_id")}
	if tw := r.URL.Query().Get("this_week"); tw != "" {
		v := tw == "true" || tw == "1"
		filter.ThisWeek = &v
	}
	tasks, err := s.store.Tasks(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyList(tasks))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var t planner.Task
	if err := decodeRoot(r, "task", &t); err != nil {
		badRequest(w, err)
		return
	}
	t.ID = ""
	if err := s.store.SaveTask(&t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &t)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTask(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTask(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var patch struct {
		Title    *string `json:"title"`
		Done     *bool   `json:"done"`
		ThisWeek *bool   `json:"this_week"`
		Position *int    `json:"position"`
	}
	if err := decodeRoot(r, "task", &patch); err != nil {
		badRequest(w, err)
		return
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Done != nil {
		t.Done = *patch.Done
	}
	if patch.ThisWeek != nil {
		t.ThisWeek = *patch.ThisWeek
	}
	if patch.Position != nil {
		t.Position = *patch.Position
	}
	if err := s.store.SaveTask(t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Schedule Events ---

func (s *Server) listScheduleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := s.store.ScheduleEvents(q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyList(events))
}

func (s *Server) createScheduleEvent(w http.ResponseWriter, r *http.Request) {
	var e planner.ScheduleEvent
	if err := decodeRoot(r, "schedule_event", &e); err != nil {
		badRequest(w, err)
		return
	}
	e.ID = ""
	if err := s.store.SaveScheduleEvent(&e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &e)
}

func (s *Server) getScheduleEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.GetScheduleEvent(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// eventPatch distinguishes absent fields from explicit null for the
// nullable links: PATCH {"task_id": null} unlinks the task, while an
// absent task_id leaves the link alone.
type eventPatch struct {
	Title           *string         `json:"title"`
	Date            *string         `json:"date"`
	StartMinutes    *int            `json:"start_minutes"`
	DurationMinutes *int            `json:"duration_minutes"`
	ProjectID       json.RawMessage `json:"project_id"`
	TaskID          json.RawMessage `json:"task_id"`
}

func applyNullableLink(dst **string, raw json.RawMessage) error {
	if raw == nil {
		return nil
	}
	if string(raw) == "null" {
		*dst = nil
		return nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return err
	}
	*dst = &id
	return nil
}

func (s *Server) updateScheduleEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.GetScheduleEvent(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var patch eventPatch
	if err := decodeRoot(r, "schedule_event", &patch); err != nil {
		badRequest(w, err)
		return
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.StartMinutes != nil {
		e.StartMinutes = *patch.StartMinutes
	}
	if patch.DurationMinutes != nil {
		e.DurationMinutes = *patch.DurationMinutes
	}
	if err := applyNullableLink(&e.ProjectID, patch.ProjectID); err != nil {
		badRequest(w, err)
		return
	}
	if err := applyNullableLink(&e.TaskID, patch.TaskID); err != nil {
		badRequest(w, err)
		return
	}
	if err := s.store.SaveScheduleEvent(e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteScheduleEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteScheduleEvent(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

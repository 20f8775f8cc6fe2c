// Package testsupport provides helpers for testscript-based CLI tests,
// including an in-memory tracker API server.
package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ahenry/taskdeck/project"
	"github.com/ahenry/taskdeck/task"
)

// FakeAPI is an in-memory tracker backend for end-to-end CLI tests. It
// implements the task, project, and CSRF endpoints with the same envelope
// and error conventions as the real server.
type FakeAPI struct {
	mu       sync.Mutex
	tasks    map[int64]*task.Task
	projects map[int64]*project.Project
	nextID   int64
}

// NewFakeAPI creates an empty backend.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		tasks:    make(map[int64]*task.Task),
		projects: make(map[int64]*project.Project),
		nextID:   1,
	}
}

// Start serves the backend on a local listener for the duration of the test.
func (f *FakeAPI) Start(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func (f *FakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/csrf-token":
		f.serveToken(w, r)
	case path == "/api/tasks":
		f.serveTasks(w, r)
	case strings.HasPrefix(path, "/api/tasks/"):
		f.serveTask(w, r, strings.TrimPrefix(path, "/api/tasks/"))
	case path == "/api/projects":
		f.serveProjects(w, r)
	case strings.HasPrefix(path, "/api/projects/"):
		f.serveProject(w, r, strings.TrimPrefix(path, "/api/projects/"))
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (f *FakeAPI) serveToken(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "csrf_token", Value: "fake-token", Path: "/"})
	writeJSON(w, map[string]string{"csrf_token": "fake-token"})
}

// requireToken rejects mutations without the CSRF header, mirroring the
// real server so the client's token plumbing is exercised end to end.
func requireToken(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	if r.Header.Get("X-CSRF-Token") == "" {
		writeError(w, http.StatusForbidden, "Missing CSRF token")
		return false
	}
	return true
}

func (f *FakeAPI) serveTasks(w http.ResponseWriter, r *http.Request) {
	if !requireToken(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		list := make([]task.Task, 0, len(f.tasks))
		for _, t := range f.tasks {
			list = append(list, *t)
		}
		f.mu.Unlock()
		sortTasks(list)
		writeJSON(w, map[string]any{"tasks": list})
	case http.MethodPost:
		var draft task.Task
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid task body")
			return
		}
		if err := task.ValidateTask(&draft); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.mu.Lock()
		draft.ID = f.nextID
		f.nextID++
		for i := range draft.Subtasks {
			if draft.Subtasks[i].ID == 0 {
				draft.Subtasks[i].ID = f.nextID
				f.nextID++
			}
		}
		f.tasks[draft.ID] = &draft
		f.mu.Unlock()
		writeJSON(w, draft)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (f *FakeAPI) serveTask(w http.ResponseWriter, r *http.Request, rawID string) {
	if !requireToken(w, r) {
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.tasks[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, withDerived(*existing, f.tasks))
	case http.MethodPut:
		var fields map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid task body")
			return
		}
		merged, err := applyTaskPatch(*existing, fields)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		*existing = merged
		writeJSON(w, map[string]bool{"ok": true})
	case http.MethodDelete:
		delete(f.tasks, id)
		writeJSON(w, map[string]bool{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (f *FakeAPI) serveProjects(w http.ResponseWriter, r *http.Request) {
	if !requireToken(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		list := make([]project.Project, 0, len(f.projects))
		for _, p := range f.projects {
			list = append(list, *p)
		}
		f.mu.Unlock()
		sortProjects(list)
		writeJSON(w, map[string]any{"projects": list})
	case http.MethodPost:
		var draft project.Project
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid project body")
			return
		}
		if err := project.ValidateName(draft.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.mu.Lock()
		draft.ID = f.nextID
		f.nextID++
		f.projects[draft.ID] = &draft
		f.mu.Unlock()
		writeJSON(w, draft)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (f *FakeAPI) serveProject(w http.ResponseWriter, r *http.Request, rawID string) {
	if !requireToken(w, r) {
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.projects[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, *existing)
	case http.MethodPut:
		var patch project.Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid project body")
			return
		}
		if patch.Name != nil {
			existing.Name = *patch.Name
		}
		if patch.Description != nil {
			existing.Description = *patch.Description
		}
		writeJSON(w, map[string]bool{"ok": true})
	case http.MethodDelete:
		delete(f.projects, id)
		// Tasks in the deleted project become quick tasks.
		for _, t := range f.tasks {
			if t.ProjectID != nil && *t.ProjectID == id {
				t.ProjectID = nil
			}
		}
		writeJSON(w, map[string]bool{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// applyTaskPatch merges a partial update into a task, field by field. Keyed
// nulls clear nullable fields.
func applyTaskPatch(base task.Task, fields map[string]json.RawMessage) (task.Task, error) {
	data, err := json.Marshal(base)
	if err != nil {
		return task.Task{}, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return task.Task{}, err
	}
	for key, value := range fields {
		if string(value) == "null" {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}
	remarshaled, err := json.Marshal(merged)
	if err != nil {
		return task.Task{}, err
	}
	var result task.Task
	if err := json.Unmarshal(remarshaled, &result); err != nil {
		return task.Task{}, fmt.Errorf("invalid patch: %w", err)
	}
	if _, hasKey := fields["project_id"]; hasKey && string(fields["project_id"]) == "null" {
		result.ProjectID = nil
	}
	if err := task.ValidateTask(&result); err != nil {
		return task.Task{}, err
	}
	return result, nil
}

// withDerived fills the derived blocked_by view for a single-task response.
func withDerived(t task.Task, all map[int64]*task.Task) task.Task {
	t.BlockedBy = nil
	for _, other := range all {
		for _, id := range other.Blocking {
			if id == t.ID {
				t.BlockedBy = append(t.BlockedBy, other.ID)
			}
		}
	}
	return t
}

func sortTasks(list []task.Task) {
	slices.SortFunc(list, func(a, b task.Task) int { return int(a.ID - b.ID) })
}

func sortProjects(list []project.Project) {
	slices.SortFunc(list, func(a, b project.Project) int { return int(a.ID - b.ID) })
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

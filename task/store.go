package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/ahenry/taskdeck/client"
	internalstrings "github.com/ahenry/taskdeck/internal/strings"
)

// Default display messages used when the server response carries no error text.
const (
	fetchTasksFailed = "Failed to fetch tasks"
	createTaskFailed = "Failed to create task"
	updateTaskFailed = "Failed to update task"
	deleteTaskFailed = "Failed to delete task"
)

// Store owns the authoritative client-side task list. All writes to the list
// go through the store's own operations; other components read snapshots.
//
// Mutations are confirmed-optimistic: the local entry is patched with the
// submitted fields once the server accepts the request, and left untouched
// when it does not. Each task id carries a monotonic revision counter so a
// response that was overtaken by a newer request for the same id is
// discarded instead of applied out of order.
type Store struct {
	client *client.Client
	logger *log.Logger

	mu      sync.Mutex
	tasks   []Task
	loading bool
	lastErr string
	revs    map[int64]uint64
}

// NewStore creates a task store backed by the given API client.
func NewStore(c *client.Client, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "tasks: ", log.LstdFlags)
	}
	return &Store{client: c, logger: logger, revs: make(map[int64]uint64)}
}

// Tasks returns a snapshot of the current task list.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the display message of the last failed operation, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Find returns the task with the given id from the current snapshot.
func (s *Store) Find(id int64) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return Task{}, false
}

// FetchAll retrieves the current user's tasks and replaces the store list.
// Any prior error is cleared at call start so a retry never shows stale
// failure state while the request is in flight.
func (s *Store) FetchAll(ctx context.Context) ([]Task, error) {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()

	tasks, err := client.GetList[Task](ctx, s.client, "/api/tasks", "tasks")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = client.Message(err, fetchTasksFailed)
		s.logger.Printf("fetch tasks: %s", s.lastErr)
		return nil, err
	}
	s.tasks = tasks
	return slices.Clone(s.tasks), nil
}

// Get fetches a single task and refreshes its entry in the store list when
// present.
func (s *Store) Get(ctx context.Context, id int64) (*Task, error) {
	var fetched Task
	if err := s.client.Get(ctx, fmt.Sprintf("/api/tasks/%d", id), &fetched); err != nil {
		s.mu.Lock()
		s.lastErr = client.Message(err, fetchTasksFailed)
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i] = fetched
			break
		}
	}
	return &fetched, nil
}

// Create validates the draft and posts it. The server-assigned task is
// appended to the store list on success.
func (s *Store) Create(ctx context.Context, draft Task) (*Task, error) {
	if err := ValidateTask(&draft); err != nil {
		return nil, err
	}
	// Server-owned fields never travel on a create.
	draft.ID = 0
	draft.NextOccurrence = ""
	draft.BlockedBy = nil

	var created Task
	if err := s.client.Post(ctx, "/api/tasks", draft, &created); err != nil {
		s.mu.Lock()
		s.lastErr = client.Message(err, createTaskFailed)
		s.mu.Unlock()
		s.logger.Printf("create task: %s", client.Message(err, createTaskFailed))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
	s.tasks = append(s.tasks, created)
	return &created, nil
}

// Patch is the partial-update body for a task. Nil fields are neither sent
// to the server nor applied locally.
type Patch struct {
	Title           *string   `json:"title,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Priority        *int      `json:"priority,omitempty"`
	Completed       *bool     `json:"completed,omitempty"`
	ProjectID       *int64    `json:"project_id,omitempty"`
	DueDate         *string   `json:"due_date,omitempty"`
	StartDate       *string   `json:"start_date,omitempty"`
	Recurrence      *string   `json:"recurrence,omitempty"`
	ReminderEnabled *bool     `json:"reminder_enabled,omitempty"`
	ReminderTime    *string   `json:"reminder_time,omitempty"`
	Subtasks        []Subtask `json:"subtasks,omitempty"`
	Blocking        []int64   `json:"blocking,omitempty"`
	LinkedTasks     []int64   `json:"linked_tasks,omitempty"`

	// ClearProject detaches the task from its project, turning it into a
	// quick task. It is sent on the wire as an explicit null project_id,
	// which a plain nil pointer cannot express.
	ClearProject bool `json:"-"`
}

// MarshalJSON emits the patch. Two cases need explicit encoding that
// omitempty would drop: ClearProject becomes "project_id": null, and a
// non-nil empty list still travels so the server empties its copy.
func (p Patch) MarshalJSON() ([]byte, error) {
	type alias Patch
	data, err := json.Marshal(alias(p))
	if err != nil {
		return nil, err
	}

	emptyLists := map[string]bool{
		"subtasks":     p.Subtasks != nil && len(p.Subtasks) == 0,
		"blocking":     p.Blocking != nil && len(p.Blocking) == 0,
		"linked_tasks": p.LinkedTasks != nil && len(p.LinkedTasks) == 0,
	}
	if !p.ClearProject && !emptyLists["subtasks"] && !emptyLists["blocking"] && !emptyLists["linked_tasks"] {
		return data, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if p.ClearProject {
		fields["project_id"] = json.RawMessage("null")
	}
	for key, empty := range emptyLists {
		if empty {
			fields[key] = json.RawMessage("[]")
		}
	}
	return json.Marshal(fields)
}

// IsEmpty reports whether the patch carries no fields.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Completed == nil && p.ProjectID == nil && p.DueDate == nil &&
		p.StartDate == nil && p.Recurrence == nil && p.ReminderEnabled == nil &&
		p.ReminderTime == nil && p.Subtasks == nil && p.Blocking == nil &&
		p.LinkedTasks == nil && !p.ClearProject
}

func (p Patch) validate() error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Priority != nil {
		if err := ValidatePriority(*p.Priority); err != nil {
			return err
		}
	}
	if p.StartDate != nil || p.DueDate != nil {
		start, due := "", ""
		if p.StartDate != nil {
			start = *p.StartDate
		}
		if p.DueDate != nil {
			due = *p.DueDate
		}
		if err := ValidateDates(start, due); err != nil {
			return err
		}
	}
	return nil
}

func (p Patch) apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.ClearProject {
		t.ProjectID = nil
	} else if p.ProjectID != nil {
		id := *p.ProjectID
		t.ProjectID = &id
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.Recurrence != nil {
		t.Recurrence = *p.Recurrence
	}
	if p.ReminderEnabled != nil {
		t.ReminderEnabled = *p.ReminderEnabled
	}
	if p.ReminderTime != nil {
		t.ReminderTime = *p.ReminderTime
	}
	if p.Subtasks != nil {
		t.Subtasks = slices.Clone(p.Subtasks)
	}
	if p.Blocking != nil {
		t.Blocking = slices.Clone(p.Blocking)
	}
	if p.LinkedTasks != nil {
		t.LinkedTasks = slices.Clone(p.LinkedTasks)
	}
}

// Update issues a partial update for the task with the given id. On success
// the same partial patch is merged into the matching store entry; on failure
// the list keeps its last-known-good state. The network call is issued even
// when the id is not in the local list; the local list is then simply left
// unchanged.
func (s *Store) Update(ctx context.Context, id int64, patch Patch) error {
	if err := patch.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastErr = ""
	s.revs[id]++
	rev := s.revs[id]
	s.mu.Unlock()

	err := s.client.Put(ctx, fmt.Sprintf("/api/tasks/%d", id), patch, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = client.Message(err, updateTaskFailed)
		s.logger.Printf("update task %d: %s", id, s.lastErr)
		return err
	}
	if rev != s.revs[id] {
		// A newer update for this id was issued while this response was in
		// flight. The server has already applied both in its own order;
		// applying this stale patch locally would reorder them.
		return nil
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			patch.apply(&s.tasks[i])
			break
		}
	}
	return nil
}

// SetCompleted toggles completion via a partial update.
func (s *Store) SetCompleted(ctx context.Context, id int64, completed bool) error {
	return s.Update(ctx, id, Patch{Completed: &completed})
}

// Delete removes the task server-side, then drops it from the store list.
// On failure the list is left unchanged.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	err := s.client.Delete(ctx, fmt.Sprintf("/api/tasks/%d", id))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = client.Message(err, deleteTaskFailed)
		s.logger.Printf("delete task %d: %s", id, s.lastErr)
		return err
	}
	s.tasks = slices.DeleteFunc(s.tasks, func(t Task) bool { return t.ID == id })
	delete(s.revs, id)
	return nil
}

// ListFilter configures which tasks List returns from the store snapshot.
type ListFilter struct {
	// Completed filters by completion state.
	Completed *bool

	// Priority filters by exact priority match.
	Priority *int

	// ProjectID filters to a project; QuickOnly selects tasks without one.
	ProjectID *int64
	QuickOnly bool

	// TitleSubstring filters to tasks with this substring in the title.
	TitleSubstring string
}

// List returns the tasks in the current snapshot matching the filter.
func (s *Store) List(filter ListFilter) ([]Task, error) {
	if filter.Priority != nil {
		if err := ValidatePriority(*filter.Priority); err != nil {
			return nil, err
		}
	}

	titleQuery := internalstrings.NormalizeLowerTrimSpace(filter.TitleSubstring)

	var result []Task
	for _, t := range s.Tasks() {
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if filter.QuickOnly && !t.IsQuickTask() {
			continue
		}
		if filter.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *filter.ProjectID) {
			continue
		}
		if titleQuery != "" && !strings.Contains(strings.ToLower(t.Title), titleQuery) {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

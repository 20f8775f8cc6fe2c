// Package task implements the client side of the tracker's task model: the
// wire types, validation, the dependency-graph rules the editing surface
// enforces, and the synchronized in-memory store.
//
// The store is the single owner of the "current" task list; editing surfaces
// work on draft copies and hand them back through the store's operations.
package task

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Task represents a single task as exchanged with the tracker API.
type Task struct {
	// ID is the server-assigned identifier. Zero for drafts.
	ID int64 `json:"id,omitempty"`

	// Title is the short summary (required, at least 2 characters trimmed).
	Title string `json:"title"`

	// Description provides additional context, rendered as markdown.
	Description string `json:"description,omitempty"`

	// Priority is the importance level (0=low .. 3=critical).
	Priority int `json:"priority"`

	// Completed marks the task done.
	Completed bool `json:"completed"`

	// ProjectID associates the task with a project. Nil means a quick task.
	ProjectID *int64 `json:"project_id,omitempty"`

	// DueDate and StartDate are ISO-8601 strings. When both are present,
	// StartDate must not be after DueDate.
	DueDate   string `json:"due_date,omitempty"`
	StartDate string `json:"start_date,omitempty"`

	// Recurrence is an opaque rule token (or free-form custom string). The
	// client never interprets it.
	Recurrence string `json:"recurrence,omitempty"`

	// NextOccurrence is computed server-side and is display-only; it is
	// never sent on mutations.
	NextOccurrence string `json:"next_occurrence,omitempty"`

	// ReminderEnabled and ReminderTime configure the optional reminder.
	// ReminderTime is meaningful only while the reminder is enabled.
	ReminderEnabled bool   `json:"reminder_enabled,omitempty"`
	ReminderTime    string `json:"reminder_time,omitempty"`

	// Subtasks is the ordered checklist under the task.
	Subtasks []Subtask `json:"subtasks,omitempty"`

	// BlockedBy is derived from other tasks' Blocking lists and is not
	// editable through this task's own form.
	BlockedBy []int64 `json:"blocked_by,omitempty"`

	// Blocking is the writable edge list: ids of tasks this task blocks.
	Blocking []int64 `json:"blocking,omitempty"`

	// LinkedTasks holds ids of related tasks. Each side stores its own
	// list; the client derives the symmetric view for display.
	LinkedTasks []int64 `json:"linked_tasks,omitempty"`
}

// Subtask is an ordered checklist entry under a task. Entries without a
// server id are new: they are created server-side on save, and TempID keys
// them client-side until then.
type Subtask struct {
	ID        int64  `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`

	// TempID is the client-local placeholder id for new subtasks. It is
	// never sent to the server.
	TempID string `json:"-"`
}

// IsNew reports whether the subtask has not been created server-side yet.
func (s Subtask) IsNew() bool {
	return s.ID == 0
}

// New returns a task draft with the default field values applied.
func New(title string) Task {
	return Task{Title: title, Priority: PriorityMedium}
}

// IsQuickTask reports whether the task has no associated project.
func (t Task) IsQuickTask() bool {
	return t.ProjectID == nil
}

// Clone returns a deep copy suitable for use as an editing draft.
func (t Task) Clone() Task {
	clone := t
	if t.ProjectID != nil {
		id := *t.ProjectID
		clone.ProjectID = &id
	}
	clone.Subtasks = slices.Clone(t.Subtasks)
	clone.BlockedBy = slices.Clone(t.BlockedBy)
	clone.Blocking = slices.Clone(t.Blocking)
	clone.LinkedTasks = slices.Clone(t.LinkedTasks)
	return clone
}

// UnmarshalJSON decodes a task, normalizing the project reference: servers
// emit either "project_id" or "projectId", and the camelCase key wins
// whenever it is present, including when its value is null.
func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["projectId"]; ok {
		var id *int64
		if err := json.Unmarshal(raw, &id); err != nil {
			return fmt.Errorf("parse projectId: %w", err)
		}
		decoded.ProjectID = id
	}

	*t = Task(decoded)
	return nil
}

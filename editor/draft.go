package editor

import (
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ahenry/taskdeck/task"
)

// AddSubtask appends a new checklist entry to the draft. The entry gets a
// client-local temp id so it can be toggled or removed before it exists
// server-side.
func (s *Session) AddSubtask(title string) (task.Subtask, error) {
	if err := s.checkEditing(); err != nil {
		return task.Subtask{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return task.Subtask{}, task.ErrEmptySubtaskTitle
	}
	subtask := task.Subtask{Title: title, TempID: uuid.NewString()}
	s.draft.Subtasks = append(s.draft.Subtasks, subtask)
	return subtask, nil
}

// subtaskIndex resolves a key that is either a temp id or a server id.
func (s *Session) subtaskIndex(key string) int {
	for i, sub := range s.draft.Subtasks {
		if sub.TempID != "" && sub.TempID == key {
			return i
		}
		if sub.ID != 0 && strconv.FormatInt(sub.ID, 10) == key {
			return i
		}
	}
	return -1
}

// RemoveSubtask removes the checklist entry with the given id or temp id.
func (s *Session) RemoveSubtask(key string) bool {
	if s.state != StateEditing {
		return false
	}
	i := s.subtaskIndex(key)
	if i < 0 {
		return false
	}
	s.draft.Subtasks = slices.Delete(s.draft.Subtasks, i, i+1)
	return true
}

// ToggleSubtask flips the completion of the entry with the given id or
// temp id.
func (s *Session) ToggleSubtask(key string) bool {
	if s.state != StateEditing {
		return false
	}
	i := s.subtaskIndex(key)
	if i < 0 {
		return false
	}
	s.draft.Subtasks[i].Completed = !s.draft.Subtasks[i].Completed
	return true
}

// AddRelation adds a task id to one of the draft's writable relation lists
// without going through the picker.
func (s *Session) AddRelation(kind task.RelationKind, id int64) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	return s.addRelation(kind, id)
}

func (s *Session) addRelation(kind task.RelationKind, id int64) error {
	if !kind.IsValid() {
		return task.ErrInvalidRelationKind
	}
	if !kind.IsWritable() {
		return task.ErrRelationNotEditable
	}
	if s.draft.ID != 0 && id == s.draft.ID {
		return task.ErrSelfRelation
	}

	list := &s.draft.Blocking
	if kind == task.RelationLinked {
		list = &s.draft.LinkedTasks
	}
	if slices.Contains(*list, id) {
		return task.ErrDuplicateRelation
	}
	*list = append(*list, id)
	return nil
}

// RemoveRelation drops a task id from one of the draft's writable relation
// lists.
func (s *Session) RemoveRelation(kind task.RelationKind, id int64) bool {
	if s.state != StateEditing || !kind.IsWritable() {
		return false
	}
	list := &s.draft.Blocking
	if kind == task.RelationLinked {
		list = &s.draft.LinkedTasks
	}
	i := slices.Index(*list, id)
	if i < 0 {
		return false
	}
	*list = slices.Delete(*list, i, i+1)
	return true
}

// diffPatch builds the partial update carrying exactly the fields the draft
// changed relative to the original. Server-owned fields (next occurrence,
// derived blocked-by) never appear.
func diffPatch(original, draft task.Task) task.Patch {
	var patch task.Patch
	if draft.Title != original.Title {
		patch.Title = &draft.Title
	}
	if draft.Description != original.Description {
		patch.Description = &draft.Description
	}
	if draft.Priority != original.Priority {
		patch.Priority = &draft.Priority
	}
	if draft.Completed != original.Completed {
		patch.Completed = &draft.Completed
	}
	if !int64PtrEqual(draft.ProjectID, original.ProjectID) {
		if draft.ProjectID == nil {
			patch.ClearProject = true
		} else {
			id := *draft.ProjectID
			patch.ProjectID = &id
		}
	}
	if draft.DueDate != original.DueDate {
		patch.DueDate = &draft.DueDate
	}
	if draft.StartDate != original.StartDate {
		patch.StartDate = &draft.StartDate
	}
	if draft.Recurrence != original.Recurrence {
		patch.Recurrence = &draft.Recurrence
	}
	if draft.ReminderEnabled != original.ReminderEnabled {
		patch.ReminderEnabled = &draft.ReminderEnabled
	}
	if draft.ReminderTime != original.ReminderTime {
		patch.ReminderTime = &draft.ReminderTime
	}
	if !slices.Equal(draft.Subtasks, original.Subtasks) {
		patch.Subtasks = slices.Clone(draft.Subtasks)
	}
	if !slices.Equal(draft.Blocking, original.Blocking) {
		patch.Blocking = slices.Clone(draft.Blocking)
	}
	if !slices.Equal(draft.LinkedTasks, original.LinkedTasks) {
		patch.LinkedTasks = slices.Clone(draft.LinkedTasks)
	}
	return patch
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

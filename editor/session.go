// Package editor implements the task editing session: a draft copy of one
// task, the relationship picker over it, and the submit flow that hands the
// result to the task store.
package editor

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/ahenry/taskdeck/client"
	"github.com/ahenry/taskdeck/task"
)

// State is the lifecycle phase of an editing session.
type State int

const (
	// StateClosed means no draft exists.
	StateClosed State = iota

	// StateEditing means a draft is open for modification.
	StateEditing

	// StateSubmitting means a network request for the draft is in flight.
	// The draft is frozen until the outcome is known.
	StateSubmitting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Mode distinguishes a create draft from an edit of an existing task.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

var (
	// ErrSessionOpen is returned when opening a session while one exists.
	ErrSessionOpen = errors.New("an editing session is already open")

	// ErrSessionClosed is returned by operations that need an open draft.
	ErrSessionClosed = errors.New("no editing session is open")

	// ErrSessionBusy is returned while a submit is in flight.
	ErrSessionBusy = errors.New("a submit is in progress")

	// ErrNoPicker is returned by Pick when no picker is open.
	ErrNoPicker = errors.New("no relationship picker is open")

	// ErrNotSelectable is returned by Pick for an id outside the
	// candidate list captured when the picker opened.
	ErrNotSelectable = errors.New("task is not selectable")
)

// Defaults seeds new create drafts, typically from the user's config.
type Defaults struct {
	Priority *int
	Project  *int64
}

// Picker is an open relationship picker. Candidates is the fixed list of
// selectable tasks captured when the picker opened.
type Picker struct {
	Kind       task.RelationKind
	Candidates []task.Task
}

// Session is a task editing session. It moves closed -> editing on open,
// editing -> submitting on submit, and back to closed on success or to
// editing (with the draft and an error message preserved) on failure.
type Session struct {
	store  *task.Store
	logger *log.Logger

	state     State
	mode      Mode
	draft     task.Task
	original  task.Task
	picker    *Picker
	submitErr string
}

// NewSession creates a closed session over the given task store.
func NewSession(store *task.Store, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(os.Stderr, "editor: ", log.LstdFlags)
	}
	return &Session{store: store, logger: logger}
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Mode returns whether the open draft creates or updates a task. Meaningful
// only while the session is open.
func (s *Session) Mode() Mode { return s.mode }

// Draft returns a copy of the current draft.
func (s *Session) Draft() task.Task { return s.draft.Clone() }

// SubmitError returns the display message of the last failed submit, or "".
func (s *Session) SubmitError() string { return s.submitErr }

// Picker returns the open relationship picker, or nil.
func (s *Session) Picker() *Picker { return s.picker }

// OpenCreate opens a create draft seeded with the given defaults.
func (s *Session) OpenCreate(title string, defaults Defaults) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	draft := task.New(strings.TrimSpace(title))
	if defaults.Priority != nil {
		draft.Priority = *defaults.Priority
	}
	if defaults.Project != nil {
		id := *defaults.Project
		draft.ProjectID = &id
	}
	s.open(ModeCreate, draft)
	return nil
}

// OpenEdit opens an update draft for the task with the given id. The draft
// is a deep copy; the store entry stays untouched until a submit succeeds.
func (s *Session) OpenEdit(id int64) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	existing, ok := s.store.Find(id)
	if !ok {
		return task.ErrTaskNotFound
	}
	s.open(ModeUpdate, existing.Clone())
	s.original = existing
	return nil
}

func (s *Session) checkClosed() error {
	switch s.state {
	case StateClosed:
		return nil
	case StateSubmitting:
		return ErrSessionBusy
	default:
		return ErrSessionOpen
	}
}

func (s *Session) open(mode Mode, draft task.Task) {
	s.state = StateEditing
	s.mode = mode
	s.draft = draft
	s.original = task.Task{}
	s.picker = nil
	s.submitErr = ""
}

// Cancel discards the draft and closes the session. Cancelling a closed
// session is a no-op; cancelling mid-submit is not allowed.
func (s *Session) Cancel() error {
	if s.state == StateSubmitting {
		return ErrSessionBusy
	}
	s.state = StateClosed
	s.draft = task.Task{}
	s.original = task.Task{}
	s.picker = nil
	s.submitErr = ""
	return nil
}

func (s *Session) checkEditing() error {
	switch s.state {
	case StateEditing:
		return nil
	case StateSubmitting:
		return ErrSessionBusy
	default:
		return ErrSessionClosed
	}
}

// SetTitle replaces the draft title.
func (s *Session) SetTitle(title string) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	s.draft.Title = title
	return nil
}

// SetDescription replaces the draft description.
func (s *Session) SetDescription(description string) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	s.draft.Description = description
	return nil
}

// SetPriority replaces the draft priority. The value is range-checked
// immediately so the form can reject it in place.
func (s *Session) SetPriority(priority int) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	if err := task.ValidatePriority(priority); err != nil {
		return err
	}
	s.draft.Priority = priority
	return nil
}

// SetProject assigns the draft to a project; nil makes it a quick task.
func (s *Session) SetProject(id *int64) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	if id == nil {
		s.draft.ProjectID = nil
		return nil
	}
	v := *id
	s.draft.ProjectID = &v
	return nil
}

// SetCompleted toggles the draft's completion flag.
func (s *Session) SetCompleted(completed bool) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	s.draft.Completed = completed
	return nil
}

// SetDates replaces the start and due dates. Ordering and format are
// validated at submit time; empty strings clear the dates.
func (s *Session) SetDates(start, due string) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	s.draft.StartDate = strings.TrimSpace(start)
	s.draft.DueDate = strings.TrimSpace(due)
	return nil
}

// SetRecurrence replaces the draft's recurrence rule. The value is opaque
// to the client and travels to the server unchanged.
func (s *Session) SetRecurrence(rule string) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	s.draft.Recurrence = strings.TrimSpace(rule)
	return nil
}

// SetReminder configures the draft reminder. The time is kept only while
// the reminder is enabled.
func (s *Session) SetReminder(enabled bool, at string) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	s.draft.ReminderEnabled = enabled
	if enabled {
		s.draft.ReminderTime = strings.TrimSpace(at)
	} else {
		s.draft.ReminderTime = ""
	}
	return nil
}

// OpenPicker opens the relationship picker for one of the draft's writable
// relation lists. The candidate list is computed once, here, from the
// current store snapshot and the draft's own relation list.
func (s *Session) OpenPicker(kind task.RelationKind) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	if !kind.IsValid() {
		return task.ErrInvalidRelationKind
	}
	if !kind.IsWritable() {
		return task.ErrRelationNotEditable
	}

	existing := s.draft.Blocking
	if kind == task.RelationLinked {
		existing = s.draft.LinkedTasks
	}
	s.picker = &Picker{
		Kind:       kind,
		Candidates: task.Selectable(s.store.Tasks(), s.draft.ID, kind, existing),
	}
	return nil
}

// ClosePicker dismisses the picker without selecting.
func (s *Session) ClosePicker() {
	s.picker = nil
}

// Pick selects a candidate from the open picker, adds it to the draft's
// relation list, and closes the picker.
func (s *Session) Pick(id int64) error {
	if err := s.checkEditing(); err != nil {
		return err
	}
	if s.picker == nil {
		return ErrNoPicker
	}
	var found bool
	for _, candidate := range s.picker.Candidates {
		if candidate.ID == id {
			found = true
			break
		}
	}
	if !found {
		return ErrNotSelectable
	}
	if err := s.addRelation(s.picker.Kind, id); err != nil {
		return err
	}
	s.picker = nil
	return nil
}

// Submit validates the draft and hands it to the store. Validation failures
// return before any network request is issued and leave the session editing.
// A rejected request also returns to editing, with the draft preserved and
// the server's message in SubmitError.
func (s *Session) Submit(ctx context.Context) (*task.Task, error) {
	if err := s.checkEditing(); err != nil {
		return nil, err
	}

	s.draft.Title = strings.TrimSpace(s.draft.Title)
	if err := task.ValidateTask(&s.draft); err != nil {
		return nil, err
	}

	s.state = StateSubmitting
	s.picker = nil

	var (
		result *task.Task
		err    error
	)
	switch s.mode {
	case ModeCreate:
		result, err = s.store.Create(ctx, s.draft)
	case ModeUpdate:
		patch := diffPatch(s.original, s.draft)
		if patch.IsEmpty() {
			break
		}
		if err = s.store.Update(ctx, s.draft.ID, patch); err == nil {
			if updated, ok := s.store.Find(s.draft.ID); ok {
				result = &updated
			}
		}
	}

	if err != nil {
		s.state = StateEditing
		s.submitErr = client.Message(err, "Failed to save task")
		s.logger.Printf("submit: %s", s.submitErr)
		return nil, err
	}

	s.state = StateClosed
	s.draft = task.Task{}
	s.original = task.Task{}
	s.submitErr = ""
	return result, nil
}

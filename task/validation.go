package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrTitleTooShort is returned when a trimmed title is under the minimum.
	ErrTitleTooShort = errors.New("title must be at least 2 characters")

	// ErrInvalidPriority is returned when priority is outside valid range.
	ErrInvalidPriority = errors.New("priority must be between 0 and 3")

	// ErrInvalidDate is returned when a date string cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrStartAfterDue is returned when start_date is after due_date.
	ErrStartAfterDue = errors.New("start date must not be after due date")

	// ErrSelfRelation is returned when a task references itself in a relation list.
	ErrSelfRelation = errors.New("task cannot reference itself")

	// ErrDuplicateRelation is returned when a relation entry already exists.
	ErrDuplicateRelation = errors.New("relation already exists")

	// ErrInvalidRelationKind is returned for unknown relation kinds.
	ErrInvalidRelationKind = errors.New("invalid relation kind")

	// ErrRelationNotEditable is returned when editing the derived blocked_by list.
	ErrRelationNotEditable = errors.New("blocked_by is derived and cannot be edited directly")

	// ErrEmptySubtaskTitle is returned when adding a subtask with a blank title.
	ErrEmptySubtaskTitle = errors.New("subtask title cannot be empty")

	// ErrTaskNotFound is returned when a task id is not in the loaded set.
	ErrTaskNotFound = errors.New("task not found")
)

// MinTitleLength is the minimum trimmed title length.
const MinTitleLength = 2

// dateLayouts are the ISO-8601 shapes accepted for due/start/reminder values.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ValidateTitle checks the trimmed title length.
func ValidateTitle(title string) error {
	if utf8.RuneCountInString(strings.TrimSpace(title)) < MinTitleLength {
		return ErrTitleTooShort
	}
	return nil
}

// ValidatePriority checks if the priority is valid.
func ValidatePriority(priority int) error {
	if priority < PriorityMin || priority > PriorityMax {
		return fmt.Errorf("%w: got %d", ErrInvalidPriority, priority)
	}
	return nil
}

// ParseDate parses an ISO-8601 date or timestamp string.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// ValidateDates checks that both dates parse and that start is not after due
// when both are present.
func ValidateDates(startDate, dueDate string) error {
	var start, due time.Time
	var err error

	if startDate != "" {
		if start, err = ParseDate(startDate); err != nil {
			return err
		}
	}
	if dueDate != "" {
		if due, err = ParseDate(dueDate); err != nil {
			return err
		}
	}
	if startDate != "" && dueDate != "" && start.After(due) {
		return ErrStartAfterDue
	}
	return nil
}

// ValidateTask checks if a task is valid for submission.
func ValidateTask(t *Task) error {
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := ValidatePriority(t.Priority); err != nil {
		return err
	}
	if err := ValidateDates(t.StartDate, t.DueDate); err != nil {
		return err
	}
	if t.ReminderEnabled && t.ReminderTime != "" {
		if _, err := ParseDate(t.ReminderTime); err != nil {
			return err
		}
	}

	if t.ID != 0 {
		for _, kind := range ValidRelationKinds() {
			if slices := relationList(t, kind); contains(slices, t.ID) {
				return fmt.Errorf("%w: %s", ErrSelfRelation, kind)
			}
		}
	}
	return nil
}

func relationList(t *Task, kind RelationKind) []int64 {
	switch kind {
	case RelationBlockedBy:
		return t.BlockedBy
	case RelationBlocking:
		return t.Blocking
	case RelationLinked:
		return t.LinkedTasks
	default:
		return nil
	}
}

func contains(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Package project manages the client-side project list. Projects group
// tasks; a task without a project is a quick task.
package project

import (
	"errors"
	"strings"

	internalstrings "github.com/ahenry/taskdeck/internal/strings"
)

// ErrEmptyName is returned when a project name is empty after trimming.
var ErrEmptyName = errors.New("project name must not be empty")

// Project is a named container for tasks.
type Project struct {
	// ID is the server-assigned identifier. Zero means not yet created.
	ID int64 `json:"id,omitempty"`

	// Name is the display name. Must be non-empty after trimming.
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`
}

// ValidateName checks a project name.
func ValidateName(name string) error {
	if internalstrings.IsBlank(name) {
		return ErrEmptyName
	}
	return nil
}

// New creates an unsaved project draft.
func New(name string) Project {
	return Project{Name: strings.TrimSpace(name)}
}

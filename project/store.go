package project

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"

	"github.com/ahenry/taskdeck/client"
)

const (
	fetchProjectsFailed = "Failed to fetch projects"
	createProjectFailed = "Failed to create project"
	updateProjectFailed = "Failed to update project"
	deleteProjectFailed = "Failed to delete project"
)

// Store owns the client-side project list. It follows the same
// confirmed-optimistic contract as the task store: local entries change only
// after the server accepts the request.
type Store struct {
	client *client.Client
	logger *log.Logger

	mu       sync.Mutex
	projects []Project
	loading  bool
	lastErr  string
}

// NewStore creates a project store backed by the given API client.
func NewStore(c *client.Client, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "projects: ", log.LstdFlags)
	}
	return &Store{client: c, logger: logger}
}

// Projects returns a snapshot of the current project list.
func (s *Store) Projects() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.projects)
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

// Find returns the project with the given id from the current snapshot.
func (s *Store) Find(id int64) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// FindByName returns the first project whose name matches exactly.
func (s *Store) FindByName(name string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// FetchAll retrieves the current user's projects and replaces the store
// list. A prior error is cleared at call start.
func (s *Store) FetchAll(ctx context.Context) ([]Project, error) {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()

	projects, err := client.GetList[Project](ctx, s.client, "/api/projects", "projects")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = client.Message(err, fetchProjectsFailed)
		s.logger.Printf("fetch projects: %s", s.lastErr)
		return nil, err
	}
	s.projects = projects
	return slices.Clone(s.projects), nil
}

// Create validates the draft and posts it. The server-assigned project is
// appended to the store list on success.
func (s *Store) Create(ctx context.Context, draft Project) (*Project, error) {
	if err := ValidateName(draft.Name); err != nil {
		return nil, err
	}
	draft.ID = 0

	var created Project
	if err := s.client.Post(ctx, "/api/projects", draft, &created); err != nil {
		s.mu.Lock()
		s.lastErr = client.Message(err, createProjectFailed)
		s.mu.Unlock()
		s.logger.Printf("create project: %s", client.Message(err, createProjectFailed))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
	s.projects = append(s.projects, created)
	return &created, nil
}

// Patch is the partial-update body for a project. Nil fields are neither
// sent to the server nor applied locally.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// IsEmpty reports whether the patch carries no fields.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}

func (p Patch) apply(project *Project) {
	if p.Name != nil {
		project.Name = *p.Name
	}
	if p.Description != nil {
		project.Description = *p.Description
	}
}

// Update issues a partial update for the project with the given id. The
// patch is merged into the matching store entry only after the server
// accepts it.
func (s *Store) Update(ctx context.Context, id int64, patch Patch) error {
	if patch.Name != nil {
		if err := ValidateName(*patch.Name); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	err := s.client.Put(ctx, fmt.Sprintf("/api/projects/%d", id), patch, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = client.Message(err, updateProjectFailed)
		s.logger.Printf("update project %d: %s", id, s.lastErr)
		return err
	}
	for i := range s.projects {
		if s.projects[i].ID == id {
			patch.apply(&s.projects[i])
			break
		}
	}
	return nil
}

// Delete removes the project server-side, then drops it from the store
// list. Tasks that belonged to it become quick tasks server-side; callers
// refresh the task list afterwards.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	err := s.client.Delete(ctx, fmt.Sprintf("/api/projects/%d", id))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = client.Message(err, deleteProjectFailed)
		s.logger.Printf("delete project %d: %s", id, s.lastErr)
		return err
	}
	s.projects = slices.DeleteFunc(s.projects, func(p Project) bool { return p.ID == id })
	return nil
}

// Name returns the display name for a project id, or the quick-task label
// when id is nil or unknown.
func (s *Store) Name(id *int64) string {
	if id == nil {
		return "Quick task"
	}
	if p, ok := s.Find(*id); ok {
		return p.Name
	}
	return fmt.Sprintf("Project #%d", *id)
}

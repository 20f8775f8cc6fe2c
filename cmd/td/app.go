package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ahenry/taskdeck/client"
	"github.com/ahenry/taskdeck/editor"
	"github.com/ahenry/taskdeck/internal/config"
	"github.com/ahenry/taskdeck/internal/paths"
	"github.com/ahenry/taskdeck/project"
	"github.com/ahenry/taskdeck/task"
)

// app bundles the stores a command works with. Commands construct it once
// the configuration resolves to a server address.
type app struct {
	cfg      *config.Config
	client   *client.Client
	tasks    *task.Store
	projects *project.Store
	logger   *log.Logger
}

// openApp loads configuration and wires the API client with the persistent
// cookie jar. Session cookies survive between invocations so the user stays
// logged in.
func openApp() (*app, error) {
	cwd, err := paths.WorkingDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if cfg.Server.URL == "" {
		return nil, fmt.Errorf("no server configured: set server.url in taskdeck.toml or %s", config.EnvServerURL)
	}

	base, err := client.ParseBaseURL(cfg.Server.URL)
	if err != nil {
		return nil, err
	}

	stateDir, err := paths.DefaultStateDir()
	if err != nil {
		return nil, err
	}
	jar, err := client.OpenJar(filepath.Join(stateDir, "cookies.json"), base)
	if err != nil {
		return nil, err
	}

	logger := debugLogger()
	c, err := client.New(cfg.Server.URL, client.Options{Jar: jar, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		client:   c,
		tasks:    task.NewStore(c, logger),
		projects: project.NewStore(c, logger),
		logger:   logger,
	}, nil
}

func debugLogger() *log.Logger {
	if os.Getenv("TASKDECK_DEBUG") != "" {
		return log.New(os.Stderr, "td: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// session returns a fresh editing session over the task store.
func (a *app) session() *editor.Session {
	return editor.NewSession(a.tasks, a.logger)
}

// loadTasks populates the task store, which editing and relation commands
// need before they can resolve ids.
func (a *app) loadTasks(ctx context.Context) error {
	_, err := a.tasks.FetchAll(ctx)
	return err
}

// loadProjects populates the project store for name display and lookups.
func (a *app) loadProjects(ctx context.Context) error {
	_, err := a.projects.FetchAll(ctx)
	return err
}

// createDefaults translates configured defaults into session defaults.
func (a *app) createDefaults() editor.Defaults {
	return editor.Defaults{
		Priority: a.cfg.Defaults.Priority,
		Project:  a.cfg.Defaults.Project,
	}
}

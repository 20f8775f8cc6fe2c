// Package config handles loading taskdeck.toml configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ahenry/taskdeck/internal/paths"
)

// EnvServerURL overrides the configured server URL when set.
const EnvServerURL = "TASKDECK_URL"

// Config represents the taskdeck.toml configuration file.
type Config struct {
	Server   Server   `toml:"server"`
	Defaults Defaults `toml:"defaults"`
}

// Server contains connection settings for the tracker backend.
type Server struct {
	// URL is the base URL of the tracker API, e.g. "https://tasks.example.com".
	URL string `toml:"url"`
}

// Defaults contains default values applied to new tasks.
type Defaults struct {
	// Priority is the priority for new tasks when not specified (0-3).
	Priority *int `toml:"priority"`

	// Project is the project id assigned to new tasks when not specified.
	Project *int64 `toml:"project"`
}

// Load loads configuration from the working directory and the global config
// file. Project values win over global ones. Returns an empty config if no
// config files exist.
func Load(dir string) (*Config, error) {
	globalPath, err := paths.DefaultConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, globalMeta, err := loadConfigFile(globalPath)
	if err != nil {
		return nil, err
	}

	projectCfg, projectMeta, err := loadConfigFile(filepath.Join(dir, "taskdeck.toml"))
	if err != nil {
		return nil, err
	}

	merged := mergeConfigs(globalCfg, projectCfg, globalMeta, projectMeta)

	if url := strings.TrimSpace(os.Getenv(EnvServerURL)); url != "" {
		merged.Server.URL = url
	}

	return merged, nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, meta, nil
}

func mergeConfigs(globalCfg, projectCfg *Config, globalMeta, projectMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if projectCfg == nil {
		projectCfg = &Config{}
	}

	merged := Config{}
	merged.Server.URL = mergeString(projectMeta.IsDefined("server", "url"), projectCfg.Server.URL, globalCfg.Server.URL)
	merged.Defaults.Priority = mergeIntPtr(projectCfg.Defaults.Priority, globalCfg.Defaults.Priority)
	merged.Defaults.Project = mergeInt64Ptr(projectCfg.Defaults.Project, globalCfg.Defaults.Project)

	return &merged
}

func mergeString(projectDefined bool, projectValue, globalValue string) string {
	value := globalValue
	if projectDefined {
		value = projectValue
	}
	return strings.TrimSpace(value)
}

func mergeIntPtr(projectValue, globalValue *int) *int {
	if projectValue != nil {
		return projectValue
	}
	return globalValue
}

func mergeInt64Ptr(projectValue, globalValue *int64) *int64 {
	if projectValue != nil {
		return projectValue
	}
	return globalValue
}

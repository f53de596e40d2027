package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the optional per-project settings file name.
const SettingsFile = ".sandrun.yaml"

// Settings holds optional overrides for the sandbox container.
// Zero values leave the built-in defaults untouched.
type Settings struct {
	ImageTag     string `yaml:"image_tag,omitempty"`
	BuildContext string `yaml:"build_context,omitempty"`
	Dockerfile   string `yaml:"dockerfile,omitempty"`
	Memory       string `yaml:"memory,omitempty"`    // e.g. 512m
	CPUQuota     int64  `yaml:"cpu_quota,omitempty"` // microseconds per 100ms
	PidsLimit    int64  `yaml:"pids_limit,omitempty"`
	Interpreter  string `yaml:"interpreter,omitempty"`
	User         string `yaml:"user,omitempty"`
	MountTarget  string `yaml:"mount_target,omitempty"`
}

// Manager loads the settings file from a project directory.
type Manager struct {
	dir string
}

// NewManager creates a settings manager rooted at dir.
func NewManager(dir string) (*Manager, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings dir: %w", err)
	}
	return &Manager{dir: absDir}, nil
}

// Path returns the absolute path of the settings file.
func (m *Manager) Path() string {
	return filepath.Join(m.dir, SettingsFile)
}

// Exists checks if the settings file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.Path())
	return !os.IsNotExist(err)
}

// Load reads the settings file.
// If the file does not exist, it returns empty Settings and no error.
func (m *Manager) Load() (*Settings, error) {
	if !m.Exists() {
		return &Settings{}, nil
	}

	data, err := os.ReadFile(m.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", SettingsFile, err)
	}
	return &s, nil
}

// Package config loads the launcher configuration from .env, the process
// environment and the optional settings file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ChamsBouzaiene/sandrun/internal/sandbox"
)

// ErrInvalidPort is returned for a port that is not an integer in 1..65535.
var ErrInvalidPort = errors.New("invalid port")

// ErrMissing is returned for a required variable that is unset or empty.
var ErrMissing = errors.New("required variable not set")

// Config holds values read once at startup.
type Config struct {
	WorkDir     string
	ScriptPath  string
	PhoenixHost string
	PhoenixPort int
	PhoenixPath string
	LogLevel    slog.Level
	LogFile     string
	Settings    Settings
}

// Load reads .env from workDir (if present), the environment and the settings
// file. It fails before any container work when a required value is bad.
func Load(workDir string) (*Config, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	// Load .env file if it exists; real environment wins
	if err := godotenv.Load(filepath.Join(absDir, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	port, err := ParsePort("PHOENIX_PORT", os.Getenv("PHOENIX_PORT"))
	if err != nil {
		return nil, err
	}

	phoenixPath := os.Getenv("PHOENIX_PATH")
	if phoenixPath == "" {
		return nil, fmt.Errorf("PHOENIX_PATH: %w", ErrMissing)
	}

	mgr, err := NewManager(absDir)
	if err != nil {
		return nil, err
	}
	settings, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		WorkDir:     absDir,
		ScriptPath:  getEnvOrDefault("SANDRUN_SCRIPT", "agent.star"),
		PhoenixHost: getEnvOrDefault("PHOENIX_HOST", "host.docker.internal"),
		PhoenixPort: port,
		PhoenixPath: phoenixPath,
		LogLevel:    ParseLevel(os.Getenv("SANDRUN_LOG_LEVEL")),
		LogFile:     os.Getenv("SANDRUN_LOG_FILE"),
		Settings:    *settings,
	}
	if !filepath.IsAbs(cfg.ScriptPath) {
		cfg.ScriptPath = filepath.Join(absDir, cfg.ScriptPath)
	}
	return cfg, nil
}

// ParsePort validates a TCP port value, naming the variable in the error.
func ParsePort(name, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s: %w", name, ErrMissing)
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w: not an integer", name, raw, ErrInvalidPort)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%s=%d: %w: out of range 1-65535", name, port, ErrInvalidPort)
	}
	return port, nil
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown values
// default to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CollectorEndpoint is the trace collector URL as seen from inside the container.
func (c *Config) CollectorEndpoint() string {
	return fmt.Sprintf("http://%s:%d", c.PhoenixHost, c.PhoenixPort)
}

// SandboxOptions merges the defaults, the environment and the settings file.
func (c *Config) SandboxOptions() sandbox.Options {
	opts := sandbox.DefaultOptions()
	opts.BuildContext = c.WorkDir

	s := c.Settings
	if s.ImageTag != "" {
		opts.ImageTag = s.ImageTag
	}
	if s.BuildContext != "" {
		opts.BuildContext = s.BuildContext
		if !filepath.IsAbs(opts.BuildContext) {
			opts.BuildContext = filepath.Join(c.WorkDir, opts.BuildContext)
		}
	}
	if s.Dockerfile != "" {
		opts.Dockerfile = s.Dockerfile
	}
	if s.Memory != "" {
		opts.Memory = s.Memory
	}
	if s.CPUQuota > 0 {
		opts.CPUQuota = s.CPUQuota
	}
	if s.PidsLimit > 0 {
		opts.PidsLimit = s.PidsLimit
	}
	if s.Interpreter != "" {
		opts.Interpreter = s.Interpreter
	}
	if s.User != "" {
		opts.User = s.User
	}
	if s.MountTarget != "" {
		opts.Mount.Target = s.MountTarget
	}

	opts.Mount.Source = c.PhoenixPath
	opts.Env = map[string]string{
		"PHOENIX_COLLECTOR_ENDPOINT": c.CollectorEndpoint(),
		"PHOENIX_WORKING_DIR":        opts.Mount.Target,
	}
	return opts
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

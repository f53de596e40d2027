package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFansOutToFile(t *testing.T) {
	var term bytes.Buffer
	path := filepath.Join(t.TempDir(), "sandrun.log")

	logger, closeFn, err := New(Options{Level: slog.LevelInfo, Writer: &term, File: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("container started", "container", "abc123")
	require.NoError(t, closeFn())

	assert.Contains(t, term.String(), "container started")
	assert.NotContains(t, term.String(), "hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "container started", rec["msg"])
	assert.Equal(t, "abc123", rec["container"])
}

func TestNewWithoutFile(t *testing.T) {
	var term bytes.Buffer
	logger, closeFn, err := New(Options{Level: slog.LevelDebug, Writer: &term})
	require.NoError(t, err)
	logger.Debug("visible")
	require.NoError(t, closeFn())
	assert.Contains(t, term.String(), "visible")
}

func TestNewBadFile(t *testing.T) {
	_, _, err := New(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	require.Error(t, err)
}

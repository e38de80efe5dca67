package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelNotice, ParseLevel("notice"))
	assert.Equal(t, LevelNotice, ParseLevel("bogus"))
	assert.Equal(t, LevelFatal, ParseLevel("fatal"))
}

func TestFileLoggerWritesAboveThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netlogd.log")
	lg, err := NewFileLogger(path, WithLevel(LevelNotice))
	require.NoError(t, err)
	defer lg.Close()

	lg.Debugf("should not appear")
	lg.Noticef("stack %s started", "a:TCP,b:PWSNIFF")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should not appear")
	assert.Contains(t, string(data), "<NOTICE>")
	assert.Contains(t, string(data), "stack a:TCP,b:PWSNIFF started")
}

func TestReopenRepointsAtSamePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netlogd.log")
	lg, err := NewFileLogger(path, WithLevel(LevelNotice))
	require.NoError(t, err)
	defer lg.Close()

	lg.Noticef("before rotation")
	require.NoError(t, os.Rename(path, path+".1"))
	require.NoError(t, lg.Reopen())
	lg.Noticef("after rotation")

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Contains(t, string(rotated), "before rotation")

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(current), "after rotation")
	assert.NotContains(t, string(current), "before rotation")
}

func TestSetLevelChangesThresholdAtRuntime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netlogd.log")
	lg, err := NewFileLogger(path, WithLevel(LevelError))
	require.NoError(t, err)
	defer lg.Close()

	assert.False(t, lg.Enabled(LevelNotice))
	lg.SetLevel(LevelDebug)
	assert.True(t, lg.Enabled(LevelNotice))
}

func TestSlogBridgeRedactsSensitiveFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netlogd.log")
	lg, err := NewFileLogger(path, WithLevel(LevelDebug))
	require.NoError(t, err)
	defer lg.Close()

	sl := lg.Slog()
	sl.Info("connecting sink", "dsn", "postgres://user:hunter2@db/netlogd")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
}

func TestSlogBridgeIncludesAttrsFromWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netlogd.log")
	lg, err := NewFileLogger(path, WithLevel(LevelDebug))
	require.NoError(t, err)
	defer lg.Close()

	sl := lg.Slog().With("stack", "a:TCP,b:SQL")
	sl.Info("dispatch started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stack=a:TCP,b:SQL")
}

func TestNoticefAttributesRealCallSite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netlogd.log")
	lg, err := NewFileLogger(path, WithLevel(LevelDebug))
	require.NoError(t, err)
	defer lg.Close()

	lg.Noticef("stack started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "logger_test.go:")
	assert.NotContains(t, string(data), "logger.go:")
	assert.NotContains(t, string(data), "bridge.go:")
}

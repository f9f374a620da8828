package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverityMapsKnownNames(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseSeverity("debug"))
	assert.Equal(t, slog.LevelWarn, ParseSeverity("warn"))
	assert.Equal(t, slog.LevelError, ParseSeverity("error"))
	assert.Equal(t, slog.LevelInfo, ParseSeverity("info"))
}

func TestParseSeverityDefaultsToInfoForUnknown(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, ParseSeverity(""))
	assert.Equal(t, slog.LevelInfo, ParseSeverity("bogus"))
}

func TestNonZeroReturnsFallbackWhenNonPositive(t *testing.T) {
	assert.Equal(t, 100, nonZero(0, 100))
	assert.Equal(t, 100, nonZero(-5, 100))
	assert.Equal(t, 7, nonZero(7, 100))
}

func TestInitWithFilePathWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kvfuse.log")

	Init(Config{Format: "json", Severity: "debug", FilePath: path})
	Infof("hello %s", "world")

	// Restore stderr default so later tests aren't surprised.
	t.Cleanup(func() { Init(Config{}) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello world")
}

func TestNewLegacyLoggerForwardsThroughPackageLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.log")
	Init(Config{Format: "text", FilePath: path})
	t.Cleanup(func() { Init(Config{}) })

	l := NewLegacyLogger(slog.LevelError, "fuse: ")
	l.Print("boom")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fuse: boom")
}

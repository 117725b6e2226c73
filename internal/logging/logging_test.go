package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromString(tt.input))
		})
	}
}

func TestSetup_FileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docrag.log")

	logger, cleanup, err := Setup(Config{
		Level:         "info",
		FilePath:      path,
		WriteToStderr: false,
	})
	require.NoError(t, err)
	defer cleanup()

	logger.Info("indexing complete", slog.Int("chunks", 42))
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"indexing complete"`)
	assert.Contains(t, string(data), `"chunks":42`)
}

func TestSetup_LevelFiltering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docrag.log")

	logger, cleanup, err := Setup(Config{
		Level:         "warn",
		FilePath:      path,
		WriteToStderr: false,
	})
	require.NoError(t, err)
	defer cleanup()

	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Warn("shown")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestRotatingWriter_RotatesAtSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	// 1MB limit is the floor, so write past it.
	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	line := strings.Repeat("x", 64*1024)
	for i := 0; i < 20; i++ {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated file should exist")
}

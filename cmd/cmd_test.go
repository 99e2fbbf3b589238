package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level    string
		format   string
		expected logrus.Level
		json     bool
	}{
		{level: "debug", format: "text", expected: logrus.DebugLevel},
		{level: "WARN", format: "json", expected: logrus.WarnLevel, json: true},
		{level: "error", format: "", expected: logrus.ErrorLevel},
		{level: "verbose", format: "text", expected: logrus.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			logger := setupLogger(tc.level, tc.format)
			assert.Equal(t, tc.expected, logger.GetLevel())

			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tc.json, isJSON)
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "reddit-wrapped")
	assert.Contains(t, out, "Version: dev")
}

func TestCacheCommands(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("CACHE_DSN", filepath.Join(t.TempDir(), "cache.db"))

	out, err := execute(t, "cache", "status", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite")
	assert.Contains(t, out, "yes")

	out, err = execute(t, "cache", "clear", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 cached results")

	out, err = execute(t, "cache", "delete", "u/spez", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed cached result for u/spez")

	_, err = execute(t, "cache", "delete", "bad name", "--log-level", "error")
	assert.Error(t, err)
}

func TestCommandWithoutEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("CACHE_DSN", filepath.Join(dir, "cache.db"))

	out, err := execute(t, "cache", "status", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite")

	// a named env file must exist
	t.Cleanup(func() { envPath = "" })
	_, err = execute(t, "cache", "status", "--log-level", "error", "--env", filepath.Join(dir, "missing.env"))
	assert.ErrorContains(t, err, "failed to load .env file")
}

func TestAnalyzeRequiresUsername(t *testing.T) {
	_, err := execute(t, "analyze")
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "lens.db", cfg.Store.SQLitePath)
	assert.Equal(t, "screenshots", cfg.Scan.Root)
	assert.Equal(t, 60, cfg.Dashboard.TimeoutSecs)
	assert.Equal(t, 500, cfg.Dashboard.MinDelayMS)
	assert.Equal(t, 10000, cfg.Dashboard.ListLimit)
	assert.Equal(t, ".lens/push-progress.json", cfg.Push.Checkpoint)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LENS_STORE_DRIVER", "postgres")
	t.Setenv("LENS_STORE_DATABASE_URL", "postgres://localhost/lens")
	t.Setenv("LENS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/lens", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("store:\n  driver: postgres\nscan:\n  root: captures\nlog:\n  format: console\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "captures", cfg.Scan.Root)
	assert.Equal(t, "console", cfg.Log.Format)
	// Untouched keys keep defaults.
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose", Format: "json"})
	assert.Error(t, err)
}

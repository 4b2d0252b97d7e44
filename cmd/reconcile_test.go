package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/competitorlens/lens-cli/internal/config"
)

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "oracle"},
	}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitStore_PostgresRequiresURL(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "postgres"},
	}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestReconcileCmd_RunE_AgainstEmptyTree(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "shots"), 0o755))

	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(tmpDir, "lens.db"),
		},
		Scan: config.ScanConfig{Root: filepath.Join(tmpDir, "shots")},
	}

	reconcileCmd.SetContext(context.Background())
	defer reconcileCmd.SetContext(context.TODO())

	reconcileDryRun = true
	defer func() { reconcileDryRun = false }()

	err := reconcileCmd.RunE(reconcileCmd, nil)
	require.NoError(t, err)
}

func TestPushCmd_RunE_RequiresCredentials(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite"},
	}

	pushCmd.SetContext(context.Background())
	defer pushCmd.SetContext(context.TODO())

	err := pushCmd.RunE(pushCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL is required")

	cfg.Dashboard.BaseURL = "http://localhost:9"
	err = pushCmd.RunE(pushCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

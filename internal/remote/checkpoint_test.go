package remote

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/competitorlens/lens-cli/internal/model"
)

func TestCheckpointStartsEmptyWhenMissing(t *testing.T) {
	cp, err := LoadCheckpoint(filepath.Join(t.TempDir(), "progress.json"))
	require.NoError(t, err)
	assert.False(t, cp.IsCompleted("a.png"))
	assert.False(t, cp.IsFailed("a.png"))
	assert.Empty(t, cp.FailedKeys())
}

func TestCheckpointSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	cp, err := LoadCheckpoint(path)
	require.NoError(t, err)
	require.NoError(t, cp.MarkCompleted("BTCTurk/a.png", model.PushCompleted))
	require.NoError(t, cp.MarkFailed("BTCTurk/b.png", "boom"))

	reloaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.True(t, reloaded.IsCompleted("BTCTurk/a.png"))
	assert.True(t, reloaded.IsFailed("BTCTurk/b.png"))
	assert.Equal(t, []string{"BTCTurk/b.png"}, reloaded.FailedKeys())
}

func TestCheckpointCompletionClearsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	cp, err := LoadCheckpoint(path)
	require.NoError(t, err)
	require.NoError(t, cp.MarkFailed("x.png", "timeout"))
	require.NoError(t, cp.MarkCompleted("x.png", model.PushRestored))

	reloaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.True(t, reloaded.IsCompleted("x.png"))
	assert.False(t, reloaded.IsFailed("x.png"))
}

func TestCheckpointRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadCheckpoint(path)
	require.Error(t, err)
}

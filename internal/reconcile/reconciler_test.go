package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/competitorlens/lens-cli/internal/classify"
	"github.com/competitorlens/lens-cli/internal/matrix"
	"github.com/competitorlens/lens-cli/internal/model"
	"github.com/competitorlens/lens-cli/internal/resolve"
	"github.com/competitorlens/lens-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "reconcile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	_, err = matrix.SeedFeatures(ctx, s)
	require.NoError(t, err)
	return s
}

func writeTree(t *testing.T, files []string) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))
	}
	return root
}

func newReconciler(s store.Store, dryRun bool) *Reconciler {
	return New(s, resolve.New(s), classify.New(), Options{DryRun: dryRun, Workers: 2})
}

func TestScanSkipsDotfilesAndNonImages(t *testing.T) {
	root := writeTree(t, []string{
		"BTCTurk/Onboarding/signup-1.png",
		"BTCTurk/Trading/convert.jpg",
		"BTCTurk/.DS_Store",
		"BTCTurk/notes.txt",
		".git/objects/stray.png",
		"loose.png",
	})

	items, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "BTCTurk/Onboarding/signup-1.png", items[0].RelPath)
	assert.Equal(t, "BTCTurk", items[0].CompetitorLabel())
	assert.Equal(t, "image/jpeg", items[1].MimeType)
}

func TestRunClassifiesAndPersists(t *testing.T) {
	s := newTestStore(t)
	root := writeTree(t, []string{
		"BTCTurk/Onboarding/signup-1.png",
		"BTCTurk/Convert/swap.png",
		"BinanceTR/random/mystery-screen.png",
	})

	report, err := newReconciler(s, false).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 3, report.Created)
	assert.Zero(t, report.SkippedDuplicate)
	assert.Equal(t, 1, report.Orphaned)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 1, report.Classified[model.MatchNone])

	ctx := context.Background()
	btcturk, err := s.GetCompetitorByName(ctx, "BTCTurk")
	require.NoError(t, err)
	require.NotNil(t, btcturk, "competitor created from folder name")

	onboarding, err := s.FindScreenshotByNaturalKey(ctx, btcturk.ID, "BTCTurk/Onboarding/signup-1.png")
	require.NoError(t, err)
	require.NotNil(t, onboarding)
	assert.True(t, onboarding.IsOnboarding)
	require.NotNil(t, onboarding.FeatureID)

	convert, err := s.GetFeatureByName(ctx, "Convert")
	require.NoError(t, err)
	cell, err := s.GetCell(ctx, btcturk.ID, convert.ID)
	require.NoError(t, err)
	require.NotNil(t, cell)
	assert.True(t, cell.HasFeature)

	assert.Contains(t, btcturk.Description, "coverage:")

	orphans, err := s.ListScreenshots(ctx, model.ScreenshotFilter{Unassigned: true})
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "mystery-screen.png", orphans[0].FileName)
}

func TestRunIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	root := writeTree(t, []string{
		"BTCTurk/Convert/swap.png",
		"BTCTurk/Onboarding/kyc.png",
	})
	ctx := context.Background()

	first, err := newReconciler(s, false).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := newReconciler(s, false).Run(ctx, root)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, 2, second.SkippedDuplicate)

	shots, err := s.ListScreenshots(ctx, model.ScreenshotFilter{})
	require.NoError(t, err)
	assert.Len(t, shots, 2)

	// A cell flagged by the first run keeps its flag.
	btcturk, err := s.GetCompetitorByName(ctx, "BTCTurk")
	require.NoError(t, err)
	convert, err := s.GetFeatureByName(ctx, "Convert")
	require.NoError(t, err)
	cell, err := s.GetCell(ctx, btcturk.ID, convert.ID)
	require.NoError(t, err)
	assert.True(t, cell.HasFeature)
}

func TestDryRunWritesNothingButReportsTheSameShape(t *testing.T) {
	s := newTestStore(t)
	root := writeTree(t, []string{
		"BTCTurk/Convert/swap.png",
		"BinanceTR/random/mystery.png",
	})
	ctx := context.Background()

	dry, err := newReconciler(s, true).Run(ctx, root)
	require.NoError(t, err)
	assert.True(t, dry.DryRun)

	shots, err := s.ListScreenshots(ctx, model.ScreenshotFilter{})
	require.NoError(t, err)
	assert.Empty(t, shots, "dry run must not persist screenshots")

	wet, err := newReconciler(s, false).Run(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, wet.Scanned, dry.Scanned)
	assert.Equal(t, wet.Created, dry.Created)
	assert.Equal(t, wet.Orphaned, dry.Orphaned)
	assert.Equal(t, wet.Classified, dry.Classified)
	assert.Len(t, dry.Phases, len(wet.Phases), "both modes report every phase")
}

func TestRunStopsBetweenItemsOnCancellation(t *testing.T) {
	s := newTestStore(t)
	root := writeTree(t, []string{"BTCTurk/Convert/swap.png"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newReconciler(s, false).Run(ctx, root)
	require.Error(t, err)
	require.NotNil(t, report, "a cancelled run still reports what it did")
	assert.Zero(t, report.Created)
}

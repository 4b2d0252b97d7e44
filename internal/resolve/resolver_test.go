package resolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/competitorlens/lens-cli/internal/model"
	"github.com/competitorlens/lens-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "resolve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestResolveCompetitorAlias(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()

	canonical, err := s.CreateCompetitor(ctx, model.Competitor{Name: "BTCTurk", Region: model.RegionTR})
	require.NoError(t, err)

	for _, label := range []string{"BTC Turk", "btc turk", "BTC-TURK", "BTCTurk Pro"} {
		got, err := r.ResolveCompetitor(ctx, label)
		require.NoError(t, err, label)
		assert.Equal(t, canonical.ID, got.ID, label)
	}

	all, err := s.ListCompetitors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "aliases must not spawn new competitors")
}

func TestResolveCompetitorFuzzyContainment(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()

	created, err := s.CreateCompetitor(ctx, model.Competitor{Name: "Paribu"})
	require.NoError(t, err)

	got, err := r.ResolveCompetitor(ctx, "Paribu Mobile")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestResolveCompetitorCreatesUnknown(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()

	got, err := r.ResolveCompetitor(ctx, "Midas Kripto")
	require.NoError(t, err)
	assert.Equal(t, "Midas Kripto", got.Name)
	assert.Equal(t, model.RegionTR, got.Region)
	assert.Equal(t, "Crypto Exchange", got.Industry)

	global, err := r.ResolveCompetitor(ctx, "Coinbase")
	require.NoError(t, err)
	assert.Equal(t, model.RegionGlobal, global.Region)

	// Second resolve of the same label must reuse the record.
	again, err := r.ResolveCompetitor(ctx, "midas kripto")
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
}

func TestResolveFeatureNeverCreates(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()

	created, err := s.UpsertFeature(ctx, model.Feature{Name: "Copy Trading", Category: "Trading"})
	require.NoError(t, err)

	got, err := r.ResolveFeature(ctx, "copy-trading")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	missing, err := r.ResolveFeature(ctx, "Quantum Trading")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := s.ListFeatures(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMergeDuplicates(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()

	keep, err := s.CreateCompetitor(ctx, model.Competitor{Name: "BTCTurk", Industry: "Crypto Exchange"})
	require.NoError(t, err)
	lose, err := s.CreateCompetitor(ctx, model.Competitor{Name: "BTC Turk 2", Industry: "Crypto Exchange"})
	require.NoError(t, err)

	f, err := s.UpsertFeature(ctx, model.Feature{Name: "Convert", Category: "Trading"})
	require.NoError(t, err)
	has := true
	_, err = s.UpsertCell(ctx, lose.ID, f.ID, model.CellPatch{HasFeature: &has})
	require.NoError(t, err)
	_, _, err = s.CreateScreenshot(ctx, model.Screenshot{
		CompetitorID: lose.ID, FilePath: "dup/a.png", FileName: "a.png",
	})
	require.NoError(t, err)

	report, err := r.MergeDuplicates(ctx, keep.ID, []string{lose.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, report.ScreenshotsMoved)
	assert.Equal(t, 1, report.CellsMoved)
	assert.Equal(t, []string{lose.ID}, report.Removed)

	shots, err := s.ListScreenshots(ctx, model.ScreenshotFilter{CompetitorID: keep.ID})
	require.NoError(t, err)
	assert.Len(t, shots, 1, "merge must never lose a screenshot")

	gone, err := s.GetCompetitorByName(ctx, "BTC Turk 2")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Re-running the merge is a no-op, not an error.
	report, err = r.MergeDuplicates(ctx, keep.ID, []string{lose.ID})
	require.NoError(t, err)
	assert.Empty(t, report.Removed)

	_, err = r.MergeDuplicates(ctx, keep.ID, []string{keep.ID})
	require.Error(t, err)
}

func TestMergeDuplicatesOverlappingCells(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()

	keep, err := s.CreateCompetitor(ctx, model.Competitor{Name: "BTCTurk", Industry: "Crypto Exchange"})
	require.NoError(t, err)
	lose, err := s.CreateCompetitor(ctx, model.Competitor{Name: "BTC Turk 2", Industry: "Crypto Exchange"})
	require.NoError(t, err)

	convert, err := s.UpsertFeature(ctx, model.Feature{Name: "Convert", Category: "Trading"})
	require.NoError(t, err)
	staking, err := s.UpsertFeature(ctx, model.Feature{Name: "Staking", Category: "Earn"})
	require.NoError(t, err)

	has, hasNot := true, false
	// Both competitors hold a Convert cell; only the loser's is marked.
	_, err = s.UpsertCell(ctx, keep.ID, convert.ID, model.CellPatch{HasFeature: &hasNot})
	require.NoError(t, err)
	_, err = s.UpsertCell(ctx, lose.ID, convert.ID, model.CellPatch{HasFeature: &has})
	require.NoError(t, err)
	// Staking exists only on the loser and should move cleanly.
	_, err = s.UpsertCell(ctx, lose.ID, staking.ID, model.CellPatch{HasFeature: &has})
	require.NoError(t, err)

	report, err := r.MergeDuplicates(ctx, keep.ID, []string{lose.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, report.CellsMoved)
	assert.Equal(t, 1, report.CellsDiscarded)
	assert.Equal(t, []string{lose.ID}, report.Removed)

	// The loser's flag folds into the survivor's conflicting cell.
	cell, err := s.GetCell(ctx, keep.ID, convert.ID)
	require.NoError(t, err)
	require.NotNil(t, cell)
	assert.True(t, cell.HasFeature)

	// Exactly one row per (competitor, feature) remains.
	cells, err := s.ListCells(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, cells, 2)
	orphaned, err := s.ListCells(ctx, lose.ID)
	require.NoError(t, err)
	assert.Empty(t, orphaned)
}

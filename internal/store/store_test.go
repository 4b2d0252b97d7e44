package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/competitorlens/lens-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func mustCompetitor(t *testing.T, s Store, name string) *model.Competitor {
	t.Helper()
	c, err := s.CreateCompetitor(context.Background(), model.Competitor{Name: name, Region: model.RegionTR})
	require.NoError(t, err)
	return c
}

func mustFeature(t *testing.T, s Store, name, category string) *model.Feature {
	t.Helper()
	f, err := s.UpsertFeature(context.Background(), model.Feature{
		Name: name, Category: category, Priority: model.PriorityMedium,
	})
	require.NoError(t, err)
	return f
}

func boolPtr(b bool) *bool { return &b }

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CompetitorLookupIsCaseInsensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created := mustCompetitor(t, s, "BTCTurk")

		got, err := s.GetCompetitorByName(ctx, "  btcturk ")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "BTCTurk", got.Name)

		missing, err := s.GetCompetitorByName(ctx, "Kraken")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("CreateCompetitorRejectsEmptyName", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateCompetitor(context.Background(), model.Competitor{Name: "   "})
		require.Error(t, err)
	})

	t.Run("FeatureUpsertKeepsIdentity", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := mustFeature(t, s, "Copy Trading", "Trading")

		second, err := s.UpsertFeature(ctx, model.Feature{
			Name: "Copy Trading", Category: "Trading", Priority: model.PriorityHigh,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		got, err := s.GetFeatureByName(ctx, "Copy Trading")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.PriorityHigh, got.Priority)

		missing, err := s.GetFeatureByName(ctx, "Nonexistent Feature")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("UpsertCellMergesPatchedFieldsOnly", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := mustCompetitor(t, s, "Binance TR")
		f := mustFeature(t, s, "Convert", "Trading")

		notes := "seen in onboarding flow"
		cell, err := s.UpsertCell(ctx, c.ID, f.ID, model.CellPatch{
			HasFeature: boolPtr(true),
			Notes:      &notes,
		})
		require.NoError(t, err)
		assert.True(t, cell.HasFeature)
		assert.Equal(t, model.QualityNone, cell.Quality)
		assert.Equal(t, notes, cell.Notes)

		q := model.QualityGood
		cell, err = s.UpsertCell(ctx, c.ID, f.ID, model.CellPatch{Quality: &q})
		require.NoError(t, err)
		assert.True(t, cell.HasFeature, "unpatched flag must survive the merge")
		assert.Equal(t, model.QualityGood, cell.Quality)
		assert.Equal(t, notes, cell.Notes)

		cells, err := s.ListCells(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, cells, 1, "upsert must never duplicate a cell")
	})

	t.Run("HasFeatureNeverRegressesThroughUpsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := mustCompetitor(t, s, "OKX TR")
		f := mustFeature(t, s, "Price Alarm", "API & Technology")

		_, err := s.UpsertCell(ctx, c.ID, f.ID, model.CellPatch{HasFeature: boolPtr(true)})
		require.NoError(t, err)

		cell, err := s.UpsertCell(ctx, c.ID, f.ID, model.CellPatch{HasFeature: boolPtr(false)})
		require.NoError(t, err)
		assert.True(t, cell.HasFeature)

		n, err := s.ResetMatrix(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := s.GetCell(ctx, c.ID, f.ID)
		require.NoError(t, err)
		assert.False(t, got.HasFeature)
	})

	t.Run("RecomputeCoverageWritesDescription", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c, err := s.CreateCompetitor(ctx, model.Competitor{Name: "Garanti Kripto", Industry: "Crypto Exchange"})
		require.NoError(t, err)

		f1 := mustFeature(t, s, "Convert", "Trading")
		mustFeature(t, s, "Own Card", "Payment")
		mustFeature(t, s, "Passkey", "Authentication")

		_, err = s.UpsertCell(ctx, c.ID, f1.ID, model.CellPatch{HasFeature: boolPtr(true)})
		require.NoError(t, err)

		pct, err := s.RecomputeCoverage(ctx, c.ID)
		require.NoError(t, err)
		assert.InDelta(t, 33.3, pct, 0.01)

		got, err := s.GetCompetitorByName(ctx, "Garanti Kripto")
		require.NoError(t, err)
		assert.Equal(t, "Crypto Exchange - coverage: 33.3%", got.Description)
	})

	t.Run("CreateScreenshotDuplicateIsNoOp", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := mustCompetitor(t, s, "Bybit TR")

		sc := model.Screenshot{
			CompetitorID: c.ID,
			FilePath:     "BybitTR/Trading/convert-1.png",
			FileName:     "convert-1.png",
			FileSize:     52341,
			MimeType:     "image/png",
			ClassMethod:  model.MatchFolderExact,
			Confidence:   1.0,
		}
		first, created, err := s.CreateScreenshot(ctx, sc)
		require.NoError(t, err)
		require.True(t, created)

		again, created, err := s.CreateScreenshot(ctx, sc)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)

		// File name alone is enough to match the natural key.
		byName, created, err := s.CreateScreenshot(ctx, model.Screenshot{
			CompetitorID: c.ID,
			FilePath:     "somewhere/else/convert-1.png",
			FileName:     "convert-1.png",
		})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, byName.ID)

		all, err := s.ListScreenshots(ctx, model.ScreenshotFilter{CompetitorID: c.ID})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ScreenshotFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := mustCompetitor(t, s, "Gate TR")
		f := mustFeature(t, s, "Convert", "Trading")

		_, _, err := s.CreateScreenshot(ctx, model.Screenshot{
			CompetitorID: c.ID, FeatureID: &f.ID,
			FilePath: "GateTR/Trading/a.png", FileName: "a.png",
		})
		require.NoError(t, err)
		_, _, err = s.CreateScreenshot(ctx, model.Screenshot{
			CompetitorID: c.ID,
			FilePath:     "GateTR/misc/b.png", FileName: "b.png",
		})
		require.NoError(t, err)

		assigned, err := s.ListScreenshots(ctx, model.ScreenshotFilter{FeatureID: f.ID})
		require.NoError(t, err)
		require.Len(t, assigned, 1)
		assert.Equal(t, "a.png", assigned[0].FileName)

		orphans, err := s.ListScreenshots(ctx, model.ScreenshotFilter{Unassigned: true})
		require.NoError(t, err)
		require.Len(t, orphans, 1)
		assert.Equal(t, "b.png", orphans[0].FileName)

		limited, err := s.ListScreenshots(ctx, model.ScreenshotFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("ReassignFeatureClearsWithNil", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := mustCompetitor(t, s, "BTCTurk")
		f := mustFeature(t, s, "Pay", "Payment")

		sc, _, err := s.CreateScreenshot(ctx, model.Screenshot{
			CompetitorID: c.ID, FilePath: "BTCTurk/x.png", FileName: "x.png",
		})
		require.NoError(t, err)

		require.NoError(t, s.ReassignFeature(ctx, sc.ID, &f.ID))
		got, err := s.FindScreenshotByNaturalKey(ctx, c.ID, "x.png")
		require.NoError(t, err)
		require.NotNil(t, got.FeatureID)
		assert.Equal(t, f.ID, *got.FeatureID)

		require.NoError(t, s.ReassignFeature(ctx, sc.ID, nil))
		got, err = s.FindScreenshotByNaturalKey(ctx, c.ID, "x.png")
		require.NoError(t, err)
		assert.Nil(t, got.FeatureID)
	})

	t.Run("ReassignCellsFoldsDuplicates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		keep := mustCompetitor(t, s, "BTCTurk")
		lose := mustCompetitor(t, s, "BTC Turk")
		f1 := mustFeature(t, s, "Convert", "Trading")
		f2 := mustFeature(t, s, "Pay", "Payment")

		// Loser has both cells; survivor already has f1 without the flag.
		_, err := s.UpsertCell(ctx, lose.ID, f1.ID, model.CellPatch{HasFeature: boolPtr(true)})
		require.NoError(t, err)
		_, err = s.UpsertCell(ctx, lose.ID, f2.ID, model.CellPatch{HasFeature: boolPtr(true)})
		require.NoError(t, err)
		_, err = s.UpsertCell(ctx, keep.ID, f1.ID, model.CellPatch{HasFeature: boolPtr(false)})
		require.NoError(t, err)

		moved, discarded, err := s.ReassignCells(ctx, lose.ID, keep.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, moved)
		assert.Equal(t, 1, discarded)

		cell, err := s.GetCell(ctx, keep.ID, f1.ID)
		require.NoError(t, err)
		assert.True(t, cell.HasFeature, "flag folds into the surviving cell")

		remaining, err := s.ListCells(ctx, lose.ID)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})

	t.Run("DeleteCompetitorCascades", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := mustCompetitor(t, s, "Binance TR")
		f := mustFeature(t, s, "Convert", "Trading")

		_, err := s.UpsertCell(ctx, c.ID, f.ID, model.CellPatch{HasFeature: boolPtr(true)})
		require.NoError(t, err)
		_, _, err = s.CreateScreenshot(ctx, model.Screenshot{
			CompetitorID: c.ID, FilePath: "BinanceTR/a.png", FileName: "a.png",
		})
		require.NoError(t, err)

		require.NoError(t, s.DeleteCompetitor(ctx, c.ID))

		cells, err := s.ListCells(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, cells)
		shots, err := s.ListScreenshots(ctx, model.ScreenshotFilter{})
		require.NoError(t, err)
		assert.Empty(t, shots)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

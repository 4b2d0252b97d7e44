package matrix

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/classify"
	"github.com/competitorlens/lens-cli/internal/db"
	"github.com/competitorlens/lens-cli/internal/model"
	"github.com/competitorlens/lens-cli/internal/resolve"
	"github.com/competitorlens/lens-cli/internal/store"
)

// yesValues are the cell markings that count as "has the feature". Anything
// else non-empty is treated as no, with a log line so typos surface.
var yesValues = map[string]bool{
	"var":  true, // Turkish spreadsheets mark presence with "var"
	"yes":  true,
	"true": true,
	"x":    true,
	"✓":    true,
	"✔":    true,
	"v":    true,
	"1":    true,
}

// ImportResult summarizes a matrix import.
type ImportResult struct {
	Competitors     int
	Features        int
	CellsUpserted   int
	UnknownMarkings int
}

// Importer loads a competitor/feature grid. Layout: column 0 is the
// competitor name, column 1 the region, the remaining header cells name
// features; a trailing coverage column, when present, is recomputed rather
// than trusted.
type Importer struct {
	store    store.Store
	resolver *resolve.Resolver
	pool     db.Pool
}

func NewImporter(s store.Store, r *resolve.Resolver) *Importer {
	return &Importer{store: s, resolver: r}
}

// NewBulkImporter routes marked cells through BulkImport instead of a
// statement per cell. Unmarked cells are not written; coverage divides by
// the feature count, so the percentages come out the same either way.
func NewBulkImporter(s store.Store, r *resolve.Resolver, pool db.Pool) *Importer {
	return &Importer{store: s, resolver: r, pool: pool}
}

func (im *Importer) Import(ctx context.Context, path string) (*ImportResult, error) {
	rows, err := ReadXLSX(path, XLSXOptions{})
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("matrix: %s has no data rows", path)
	}

	header := rows[0]
	if len(header) < 3 {
		return nil, eris.Errorf("matrix: %s header too narrow, want competitor, region, features", path)
	}

	featureCols, err := im.resolveHeader(ctx, header)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Features: countResolved(featureCols)}
	var (
		pending     []model.CompetitorFeature
		competitors []string
	)
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "matrix: import cancelled")
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}

		competitor, err := im.resolver.ResolveCompetitor(ctx, row[0])
		if err != nil {
			return result, eris.Wrapf(err, "matrix: row %d competitor %q", i+2, row[0])
		}
		result.Competitors++

		if len(row) > 1 {
			if region := parseRegion(row[1]); region != "" && competitor.Region != region {
				competitor.Region = region
				if err := im.store.UpdateCompetitor(ctx, *competitor); err != nil {
					return result, eris.Wrapf(err, "matrix: update region of %s", competitor.Name)
				}
			}
		}

		for col, feature := range featureCols {
			if feature == nil || col >= len(row) {
				continue
			}
			raw := strings.TrimSpace(row[col])
			if raw == "" {
				continue
			}

			marked := yesValues[strings.ToLower(raw)]
			if !marked && !isNoValue(raw) {
				result.UnknownMarkings++
				zap.L().Warn("unrecognized matrix marking",
					zap.String("competitor", competitor.Name),
					zap.String("feature", feature.Name),
					zap.String("value", raw),
				)
			}

			if im.pool != nil {
				if marked {
					pending = append(pending, model.CompetitorFeature{
						CompetitorID: competitor.ID,
						FeatureID:    feature.ID,
						HasFeature:   true,
					})
					result.CellsUpserted++
				}
				continue
			}

			patch := model.CellPatch{}
			if marked {
				t := true
				patch.HasFeature = &t
			}
			if _, err := im.store.UpsertCell(ctx, competitor.ID, feature.ID, patch); err != nil {
				return result, eris.Wrapf(err, "matrix: cell %s/%s", competitor.Name, feature.Name)
			}
			result.CellsUpserted++
		}

		if im.pool != nil {
			competitors = append(competitors, competitor.ID)
			continue
		}
		if _, err := im.store.RecomputeCoverage(ctx, competitor.ID); err != nil {
			return result, eris.Wrapf(err, "matrix: coverage for %s", competitor.Name)
		}
	}

	if im.pool != nil {
		// One COPY for the whole grid, then per-competitor coverage.
		written, err := BulkImport(ctx, im.pool, pending)
		if err != nil {
			return result, eris.Wrap(err, "matrix: bulk write cells")
		}
		zap.L().Info("bulk matrix write", zap.Int64("cells", written))
		for _, id := range competitors {
			if _, err := im.store.RecomputeCoverage(ctx, id); err != nil {
				return result, eris.Wrapf(err, "matrix: coverage for %s", id)
			}
		}
	}
	return result, nil
}

// resolveHeader maps header columns to features. Unknown headers are logged
// and skipped; the import never grows the taxonomy.
func (im *Importer) resolveHeader(ctx context.Context, header []string) (map[int]*model.Feature, error) {
	cols := make(map[int]*model.Feature, len(header))
	for col := 2; col < len(header); col++ {
		label := strings.TrimSpace(header[col])
		if label == "" || classify.Normalize(label) == "coverage" {
			continue
		}
		f, err := im.resolver.ResolveFeature(ctx, label)
		if err != nil {
			return nil, eris.Wrapf(err, "matrix: header column %d", col)
		}
		if f == nil {
			zap.L().Warn("unknown feature column skipped", zap.String("label", label))
			continue
		}
		cols[col] = f
	}
	if countResolved(cols) == 0 {
		return nil, eris.New("matrix: no header column matched a known feature; seed features first")
	}
	return cols, nil
}

func countResolved(cols map[int]*model.Feature) int {
	n := 0
	for _, f := range cols {
		if f != nil {
			n++
		}
	}
	return n
}

func parseRegion(raw string) model.Region {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TR", "TURKEY", "TURKIYE", "TÜRKİYE":
		return model.RegionTR
	case "GLOBAL", "INT", "INTERNATIONAL":
		return model.RegionGlobal
	}
	return ""
}

func isNoValue(raw string) bool {
	switch strings.ToLower(raw) {
	case "yok", "no", "false", "-", "0", "n/a":
		return true
	}
	return false
}

// BulkImport is the fast path for full-grid loads into Postgres: one COPY
// and one INSERT ... ON CONFLICT instead of a round trip per cell. Flags are
// written exactly as given, so callers keeping the never-lower rule pass
// marked cells only, or reset the matrix first.
func BulkImport(ctx context.Context, pool db.Pool, cells []model.CompetitorFeature) (int64, error) {
	if len(cells) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(cells))
	now := time.Now().UTC()
	for _, c := range cells {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		quality := c.Quality
		if quality == "" {
			quality = model.QualityNone
		}
		rows = append(rows, []any{id, c.CompetitorID, c.FeatureID, c.HasFeature, string(quality), c.Notes, now})
	}
	return db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "competitor_features",
		Columns:      []string{"id", "competitor_id", "feature_id", "has_feature", "implementation_quality", "notes", "updated_at"},
		ConflictKeys: []string{"competitor_id", "feature_id"},
		UpdateCols:   []string{"has_feature", "implementation_quality", "notes", "updated_at"},
	}, rows)
}

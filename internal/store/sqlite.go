package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/competitorlens/lens-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Referential integrity is deliberately not enforced by the engine: drifted
// data (records pointing at deleted parents) is exactly what the validator
// detects and repairs. Cascades happen in code, in DeleteCompetitor.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS competitors (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	region      TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	industry    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_competitors_name ON competitors(lower(trim(name)));

CREATE TABLE IF NOT EXISTS features (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	category    TEXT NOT NULL DEFAULT 'Other',
	priority    TEXT NOT NULL DEFAULT 'medium',
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS competitor_features (
	id                     TEXT PRIMARY KEY,
	competitor_id          TEXT NOT NULL,
	feature_id             TEXT NOT NULL,
	has_feature            INTEGER NOT NULL DEFAULT 0,
	implementation_quality TEXT NOT NULL DEFAULT 'none',
	notes                  TEXT NOT NULL DEFAULT '',
	updated_at             DATETIME NOT NULL,
	UNIQUE (competitor_id, feature_id)
);

CREATE TABLE IF NOT EXISTS screenshots (
	id            TEXT PRIMARY KEY,
	competitor_id TEXT NOT NULL,
	feature_id    TEXT,
	file_path     TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	file_size     INTEGER NOT NULL DEFAULT 0,
	mime_type     TEXT NOT NULL DEFAULT '',
	is_onboarding INTEGER NOT NULL DEFAULT 0,
	upload_source TEXT NOT NULL DEFAULT '',
	caption       TEXT NOT NULL DEFAULT '',
	class_method  TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	UNIQUE (competitor_id, file_path)
);

CREATE TABLE IF NOT EXISTS relation_screenshots (
	id                    TEXT PRIMARY KEY,
	competitor_feature_id TEXT NOT NULL,
	file_path             TEXT NOT NULL,
	file_name             TEXT NOT NULL,
	file_size             INTEGER NOT NULL DEFAULT 0,
	mime_type             TEXT NOT NULL DEFAULT '',
	caption               TEXT NOT NULL DEFAULT '',
	display_order         INTEGER NOT NULL DEFAULT 0,
	created_at            DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cells_competitor ON competitor_features(competitor_id);
CREATE INDEX IF NOT EXISTS idx_screenshots_competitor ON screenshots(competitor_id);
CREATE INDEX IF NOT EXISTS idx_screenshots_feature ON screenshots(feature_id);
CREATE INDEX IF NOT EXISTS idx_relation_screenshots_cell ON relation_screenshots(competitor_feature_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---- EntityStore ----

func (s *SQLiteStore) CreateCompetitor(ctx context.Context, c model.Competitor) (*model.Competitor, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, eris.New("sqlite: competitor name is empty")
	}
	c.ID = uuid.New().String()
	c.Name = strings.TrimSpace(c.Name)
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO competitors (id, name, region, website, industry, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Region), c.Website, c.Industry, c.Description, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert competitor %s", c.Name)
	}
	return &c, nil
}

func (s *SQLiteStore) GetCompetitorByName(ctx context.Context, name string) (*model.Competitor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, region, website, industry, description, created_at, updated_at
		 FROM competitors WHERE lower(trim(name)) = lower(trim(?))`,
		name,
	)
	c, err := scanCompetitor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get competitor %q", name)
	}
	return c, nil
}

func (s *SQLiteStore) ListCompetitors(ctx context.Context) ([]model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, region, website, industry, description, created_at, updated_at
		 FROM competitors ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list competitors")
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan competitor")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list competitors iterate")
}

func (s *SQLiteStore) UpdateCompetitor(ctx context.Context, c model.Competitor) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE competitors SET region = ?, website = ?, industry = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		string(c.Region), c.Website, c.Industry, c.Description, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update competitor %s", c.ID)
	}
	return checkRowsAffected(res, "competitor", c.ID)
}

func (s *SQLiteStore) DeleteCompetitor(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete competitor")
	}
	defer tx.Rollback()

	// Cascade in code: legacy screenshots hang off the cells.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM relation_screenshots WHERE competitor_feature_id IN
		   (SELECT id FROM competitor_features WHERE competitor_id = ?)`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete legacy screenshots for %s", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM screenshots WHERE competitor_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete screenshots for %s", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM competitor_features WHERE competitor_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete cells for %s", id)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM competitors WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete competitor %s", id)
	}
	if err := checkRowsAffected(res, "competitor", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete competitor")
}

func (s *SQLiteStore) UpsertFeature(ctx context.Context, f model.Feature) (*model.Feature, error) {
	existing, err := s.GetFeatureByName(ctx, f.Name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		f.ID = uuid.New().String()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO features (id, name, category, priority, description) VALUES (?, ?, ?, ?, ?)`,
			f.ID, f.Name, f.Category, string(f.Priority), f.Description,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert feature %s", f.Name)
		}
		return &f, nil
	}

	f.ID = existing.ID
	_, err = s.db.ExecContext(ctx,
		`UPDATE features SET category = ?, priority = ?, description = ? WHERE id = ?`,
		f.Category, string(f.Priority), f.Description, f.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update feature %s", f.Name)
	}
	return &f, nil
}

func (s *SQLiteStore) GetFeatureByName(ctx context.Context, name string) (*model.Feature, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, priority, description FROM features WHERE name = ?`,
		name,
	)
	var f model.Feature
	var priority string
	err := row.Scan(&f.ID, &f.Name, &f.Category, &priority, &f.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get feature %q", name)
	}
	f.Priority = model.FeaturePriority(priority)
	return &f, nil
}

func (s *SQLiteStore) ListFeatures(ctx context.Context) ([]model.Feature, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, priority, description FROM features ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list features")
	}
	defer rows.Close()

	var out []model.Feature
	for rows.Next() {
		var f model.Feature
		var priority string
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &priority, &f.Description); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature")
		}
		f.Priority = model.FeaturePriority(priority)
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list features iterate")
}

// ---- MatrixStore ----

func (s *SQLiteStore) UpsertCell(ctx context.Context, competitorID, featureID string, patch model.CellPatch) (*model.CompetitorFeature, error) {
	existing, err := s.GetCell(ctx, competitorID, featureID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	if existing == nil {
		cell := model.CompetitorFeature{
			ID:           uuid.New().String(),
			CompetitorID: competitorID,
			FeatureID:    featureID,
			Quality:      model.QualityNone,
			UpdatedAt:    now,
		}
		if patch.HasFeature != nil {
			cell.HasFeature = *patch.HasFeature
		}
		if patch.Quality != nil {
			cell.Quality = *patch.Quality
		}
		if patch.Notes != nil {
			cell.Notes = *patch.Notes
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO competitor_features (id, competitor_id, feature_id, has_feature, implementation_quality, notes, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cell.ID, cell.CompetitorID, cell.FeatureID, boolToInt(cell.HasFeature), string(cell.Quality), cell.Notes, cell.UpdatedAt,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert cell %s/%s", competitorID, featureID)
		}
		return &cell, nil
	}

	// Merge: only patched fields change, and HasFeature never regresses here.
	// ResetMatrix is the one path that lowers the flag.
	cell := *existing
	if patch.HasFeature != nil && *patch.HasFeature {
		cell.HasFeature = true
	}
	if patch.Quality != nil {
		cell.Quality = *patch.Quality
	}
	if patch.Notes != nil {
		cell.Notes = *patch.Notes
	}
	cell.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`UPDATE competitor_features SET has_feature = ?, implementation_quality = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		boolToInt(cell.HasFeature), string(cell.Quality), cell.Notes, cell.UpdatedAt, cell.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update cell %s/%s", competitorID, featureID)
	}
	return &cell, nil
}

func (s *SQLiteStore) GetCell(ctx context.Context, competitorID, featureID string) (*model.CompetitorFeature, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, competitor_id, feature_id, has_feature, implementation_quality, notes, updated_at
		 FROM competitor_features WHERE competitor_id = ? AND feature_id = ?`,
		competitorID, featureID,
	)
	cell, err := scanCell(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get cell %s/%s", competitorID, featureID)
	}
	return cell, nil
}

func (s *SQLiteStore) ListCells(ctx context.Context, competitorID string) ([]model.CompetitorFeature, error) {
	query := `SELECT id, competitor_id, feature_id, has_feature, implementation_quality, notes, updated_at
	          FROM competitor_features`
	var args []any
	if competitorID != "" {
		query += ` WHERE competitor_id = ?`
		args = append(args, competitorID)
	}
	query += ` ORDER BY competitor_id, feature_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cells")
	}
	defer rows.Close()

	var out []model.CompetitorFeature
	for rows.Next() {
		cell, err := scanCell(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cell")
		}
		out = append(out, *cell)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list cells iterate")
}

func (s *SQLiteStore) ReassignCells(ctx context.Context, fromID, toID string) (int, int, error) {
	cells, err := s.ListCells(ctx, fromID)
	if err != nil {
		return 0, 0, err
	}

	var moved, discarded int
	for _, cell := range cells {
		existing, err := s.GetCell(ctx, toID, cell.FeatureID)
		if err != nil {
			return moved, discarded, err
		}
		if existing != nil {
			// The survivor already has this feature; moving would violate
			// (competitor, feature) uniqueness. Fold the flag in, drop the row.
			if cell.HasFeature && !existing.HasFeature {
				t := true
				if _, err := s.UpsertCell(ctx, toID, cell.FeatureID, model.CellPatch{HasFeature: &t}); err != nil {
					return moved, discarded, err
				}
			}
			// Legacy screenshots hang off the cell row; re-point them at the
			// survivor's cell before the duplicate goes away.
			if _, err := s.db.ExecContext(ctx,
				`UPDATE relation_screenshots SET competitor_feature_id = ? WHERE competitor_feature_id = ?`,
				existing.ID, cell.ID,
			); err != nil {
				return moved, discarded, eris.Wrapf(err, "sqlite: repoint legacy screenshots from cell %s", cell.ID)
			}
			if _, err := s.db.ExecContext(ctx, `DELETE FROM competitor_features WHERE id = ?`, cell.ID); err != nil {
				return moved, discarded, eris.Wrapf(err, "sqlite: discard duplicate cell %s", cell.ID)
			}
			discarded++
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE competitor_features SET competitor_id = ?, updated_at = ? WHERE id = ?`,
			toID, time.Now().UTC(), cell.ID,
		); err != nil {
			return moved, discarded, eris.Wrapf(err, "sqlite: move cell %s", cell.ID)
		}
		moved++
	}
	return moved, discarded, nil
}

func (s *SQLiteStore) RecomputeCoverage(ctx context.Context, competitorID string) (float64, error) {
	var total, has int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM features`).Scan(&total); err != nil {
		return 0, eris.Wrap(err, "sqlite: count features")
	}
	if total == 0 {
		return 0, nil
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM competitor_features WHERE competitor_id = ? AND has_feature = 1`,
		competitorID,
	).Scan(&has); err != nil {
		return 0, eris.Wrapf(err, "sqlite: count coverage for %s", competitorID)
	}

	pct := math.Round(float64(has)/float64(total)*1000) / 10

	var industry string
	if err := s.db.QueryRowContext(ctx,
		`SELECT industry FROM competitors WHERE id = ?`, competitorID,
	).Scan(&industry); err != nil {
		if err == sql.ErrNoRows {
			return 0, eris.Errorf("competitor not found: %s", competitorID)
		}
		return 0, eris.Wrapf(err, "sqlite: load competitor %s", competitorID)
	}
	if industry == "" {
		industry = "Crypto Exchange"
	}

	desc := fmt.Sprintf("%s - coverage: %.1f%%", industry, pct)
	res, err := s.db.ExecContext(ctx,
		`UPDATE competitors SET description = ?, updated_at = ? WHERE id = ?`,
		desc, time.Now().UTC(), competitorID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: write coverage for %s", competitorID)
	}
	if err := checkRowsAffected(res, "competitor", competitorID); err != nil {
		return 0, err
	}
	return pct, nil
}

func (s *SQLiteStore) DeleteCell(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM competitor_features WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete cell %s", id)
	}
	return checkRowsAffected(res, "cell", id)
}

func (s *SQLiteStore) ResetMatrix(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE competitor_features SET has_feature = 0, updated_at = ? WHERE has_feature = 1`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reset matrix")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: reset matrix rows affected")
}

// ---- ScreenshotStore ----

// screenshotUnion reads both physical representations as one logical set.
// Legacy rows inherit competitor and feature from their matrix cell; a
// dangling cell reference surfaces as an empty competitor id for the
// validator to flag.
const screenshotUnion = `
SELECT id, competitor_id, feature_id, file_path, file_name, file_size, mime_type,
       is_onboarding, upload_source, caption, class_method, confidence, 0 AS legacy, created_at
  FROM screenshots
UNION ALL
SELECT ls.id, COALESCE(cf.competitor_id, ''), cf.feature_id, ls.file_path, ls.file_name, ls.file_size,
       ls.mime_type, 0, 'legacy-import', ls.caption, '', 0, 1 AS legacy, ls.created_at
  FROM relation_screenshots ls
  LEFT JOIN competitor_features cf ON cf.id = ls.competitor_feature_id
`

func (s *SQLiteStore) ListScreenshots(ctx context.Context, filter model.ScreenshotFilter) ([]model.Screenshot, error) {
	query := `SELECT * FROM (` + screenshotUnion + `) WHERE 1=1`
	var args []any

	if filter.CompetitorID != "" {
		query += ` AND competitor_id = ?`
		args = append(args, filter.CompetitorID)
	}
	if filter.FeatureID != "" {
		query += ` AND feature_id = ?`
		args = append(args, filter.FeatureID)
	}
	if filter.Unassigned {
		query += ` AND feature_id IS NULL`
	}
	query += ` ORDER BY file_path`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list screenshots")
	}
	defer rows.Close()

	var out []model.Screenshot
	for rows.Next() {
		sc, err := scanScreenshot(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan screenshot")
		}
		out = append(out, *sc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list screenshots iterate")
}

func (s *SQLiteStore) CreateScreenshot(ctx context.Context, sc model.Screenshot) (*model.Screenshot, bool, error) {
	existing, err := s.FindScreenshotByNaturalKey(ctx, sc.CompetitorID, sc.FilePath)
	if err != nil {
		return nil, false, err
	}
	if existing == nil && sc.FileName != sc.FilePath {
		existing, err = s.FindScreenshotByNaturalKey(ctx, sc.CompetitorID, sc.FileName)
		if err != nil {
			return nil, false, err
		}
	}
	if existing != nil {
		zap.L().Debug("screenshot create skipped, duplicate",
			zap.String("competitor_id", sc.CompetitorID),
			zap.String("file", sc.FilePath),
		)
		return existing, false, nil
	}

	sc.ID = uuid.New().String()
	sc.CreatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO screenshots (id, competitor_id, feature_id, file_path, file_name, file_size, mime_type,
		                          is_onboarding, upload_source, caption, class_method, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.CompetitorID, sc.FeatureID, sc.FilePath, sc.FileName, sc.FileSize, sc.MimeType,
		boolToInt(sc.IsOnboarding), sc.UploadSource, sc.Caption, string(sc.ClassMethod), sc.Confidence, sc.CreatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: insert screenshot %s", sc.FilePath)
	}
	return &sc, true, nil
}

func (s *SQLiteStore) FindScreenshotByNaturalKey(ctx context.Context, competitorID, fileNameOrPath string) (*model.Screenshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT * FROM (`+screenshotUnion+`)
		 WHERE competitor_id = ? AND (file_path = ? OR file_name = ?) LIMIT 1`,
		competitorID, fileNameOrPath, fileNameOrPath,
	)
	sc, err := scanScreenshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find screenshot %s/%s", competitorID, fileNameOrPath)
	}
	return sc, nil
}

func (s *SQLiteStore) ReassignFeature(ctx context.Context, id string, featureID *string) error {
	var isLegacy bool
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) > 0 FROM relation_screenshots WHERE id = ?`, id,
	).Scan(&isLegacy)
	if err != nil {
		return eris.Wrapf(err, "sqlite: check representation of %s", id)
	}
	if isLegacy {
		return eris.Errorf("screenshot %s is a legacy record; its feature is fixed by its matrix cell", id)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE screenshots SET feature_id = ? WHERE id = ?`, featureID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: reassign feature of %s", id)
	}
	return checkRowsAffected(res, "screenshot", id)
}

func (s *SQLiteStore) ReassignScreenshots(ctx context.Context, fromID, toID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE screenshots SET competitor_id = ? WHERE competitor_id = ?`, toID, fromID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: reassign screenshots %s -> %s", fromID, toID)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: reassign screenshots rows affected")
}

func (s *SQLiteStore) DeleteScreenshot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM screenshots WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete screenshot %s", id)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	res, err = s.db.ExecContext(ctx, `DELETE FROM relation_screenshots WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete legacy screenshot %s", id)
	}
	return checkRowsAffected(res, "screenshot", id)
}

// ---- helpers ----

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCompetitor(row scannable) (*model.Competitor, error) {
	var c model.Competitor
	var region string
	err := row.Scan(&c.ID, &c.Name, &region, &c.Website, &c.Industry, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Region = model.Region(region)
	return &c, nil
}

func scanCell(row scannable) (*model.CompetitorFeature, error) {
	var cell model.CompetitorFeature
	var has int
	var quality string
	err := row.Scan(&cell.ID, &cell.CompetitorID, &cell.FeatureID, &has, &quality, &cell.Notes, &cell.UpdatedAt)
	if err != nil {
		return nil, err
	}
	cell.HasFeature = has != 0
	cell.Quality = model.Quality(quality)
	return &cell, nil
}

func scanScreenshot(row scannable) (*model.Screenshot, error) {
	var sc model.Screenshot
	var featureID sql.NullString
	var onboarding, legacy int
	var method string
	err := row.Scan(&sc.ID, &sc.CompetitorID, &featureID, &sc.FilePath, &sc.FileName, &sc.FileSize,
		&sc.MimeType, &onboarding, &sc.UploadSource, &sc.Caption, &method, &sc.Confidence, &legacy, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if featureID.Valid {
		sc.FeatureID = &featureID.String
	}
	sc.IsOnboarding = onboarding != 0
	sc.ClassMethod = model.ClassMethod(method)
	sc.Legacy = legacy != 0
	return &sc, nil
}

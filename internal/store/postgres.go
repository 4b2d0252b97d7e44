package store

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/db"
	"github.com/competitorlens/lens-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot reconciliation path.
var preparedStatements = map[string]string{
	"get_competitor_by_name": `SELECT id, name, region, website, industry, description, created_at, updated_at FROM competitors WHERE lower(trim(name)) = lower(trim($1))`,
	"get_feature_by_name":    `SELECT id, name, category, priority, description FROM features WHERE name = $1`,
	"get_cell":               `SELECT id, competitor_id, feature_id, has_feature, implementation_quality, notes, updated_at FROM competitor_features WHERE competitor_id = $1 AND feature_id = $2`,
	"insert_screenshot":      `INSERT INTO screenshots (id, competitor_id, feature_id, file_path, file_name, file_size, mime_type, is_onboarding, upload_source, caption, class_method, confidence, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Tests inject pgxmock here.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., bulk matrix import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// Referential integrity stays unenforced, same as the SQLite schema: drifted
// rows are the validator's input, not a constraint violation.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS competitors (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	region      TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	industry    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
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
	has_feature            BOOLEAN NOT NULL DEFAULT false,
	implementation_quality TEXT NOT NULL DEFAULT 'none',
	notes                  TEXT NOT NULL DEFAULT '',
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (competitor_id, feature_id)
);

CREATE TABLE IF NOT EXISTS screenshots (
	id            TEXT PRIMARY KEY,
	competitor_id TEXT NOT NULL,
	feature_id    TEXT,
	file_path     TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	file_size     BIGINT NOT NULL DEFAULT 0,
	mime_type     TEXT NOT NULL DEFAULT '',
	is_onboarding BOOLEAN NOT NULL DEFAULT false,
	upload_source TEXT NOT NULL DEFAULT '',
	caption       TEXT NOT NULL DEFAULT '',
	class_method  TEXT NOT NULL DEFAULT '',
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (competitor_id, file_path)
);

CREATE TABLE IF NOT EXISTS relation_screenshots (
	id                    TEXT PRIMARY KEY,
	competitor_feature_id TEXT NOT NULL,
	file_path             TEXT NOT NULL,
	file_name             TEXT NOT NULL,
	file_size             BIGINT NOT NULL DEFAULT 0,
	mime_type             TEXT NOT NULL DEFAULT '',
	caption               TEXT NOT NULL DEFAULT '',
	display_order         INTEGER NOT NULL DEFAULT 0,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cells_competitor ON competitor_features(competitor_id);
CREATE INDEX IF NOT EXISTS idx_screenshots_competitor ON screenshots(competitor_id);
CREATE INDEX IF NOT EXISTS idx_screenshots_feature ON screenshots(feature_id);
CREATE INDEX IF NOT EXISTS idx_relation_screenshots_cell ON relation_screenshots(competitor_feature_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// ---- EntityStore ----

func (s *PostgresStore) CreateCompetitor(ctx context.Context, c model.Competitor) (*model.Competitor, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, eris.New("postgres: competitor name is empty")
	}
	c.ID = uuid.New().String()
	c.Name = strings.TrimSpace(c.Name)
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO competitors (id, name, region, website, industry, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Name, string(c.Region), c.Website, c.Industry, c.Description, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert competitor %s", c.Name)
	}
	return &c, nil
}

func (s *PostgresStore) GetCompetitorByName(ctx context.Context, name string) (*model.Competitor, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, region, website, industry, description, created_at, updated_at
		 FROM competitors WHERE lower(trim(name)) = lower(trim($1))`,
		name,
	)
	c, err := scanCompetitor(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get competitor %q", name)
	}
	return c, nil
}

func (s *PostgresStore) ListCompetitors(ctx context.Context) ([]model.Competitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, region, website, industry, description, created_at, updated_at
		 FROM competitors ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list competitors")
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan competitor")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list competitors iterate")
}

func (s *PostgresStore) UpdateCompetitor(ctx context.Context, c model.Competitor) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE competitors SET region = $1, website = $2, industry = $3, description = $4, updated_at = $5
		 WHERE id = $6`,
		string(c.Region), c.Website, c.Industry, c.Description, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update competitor %s", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("competitor not found: %s", c.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteCompetitor(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin delete competitor")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM relation_screenshots WHERE competitor_feature_id IN
		   (SELECT id FROM competitor_features WHERE competitor_id = $1)`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete legacy screenshots for %s", id)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM screenshots WHERE competitor_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete screenshots for %s", id)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM competitor_features WHERE competitor_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete cells for %s", id)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM competitors WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete competitor %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("competitor not found: %s", id)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit delete competitor")
}

func (s *PostgresStore) UpsertFeature(ctx context.Context, f model.Feature) (*model.Feature, error) {
	f.ID = uuid.New().String()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO features (id, name, category, priority, description)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE SET category = EXCLUDED.category,
		   priority = EXCLUDED.priority, description = EXCLUDED.description
		 RETURNING id`,
		f.ID, f.Name, f.Category, string(f.Priority), f.Description,
	)
	if err := row.Scan(&f.ID); err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert feature %s", f.Name)
	}
	return &f, nil
}

func (s *PostgresStore) GetFeatureByName(ctx context.Context, name string) (*model.Feature, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, category, priority, description FROM features WHERE name = $1`,
		name,
	)
	var f model.Feature
	var priority string
	err := row.Scan(&f.ID, &f.Name, &f.Category, &priority, &f.Description)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get feature %q", name)
	}
	f.Priority = model.FeaturePriority(priority)
	return &f, nil
}

func (s *PostgresStore) ListFeatures(ctx context.Context) ([]model.Feature, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category, priority, description FROM features ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list features")
	}
	defer rows.Close()

	var out []model.Feature
	for rows.Next() {
		var f model.Feature
		var priority string
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &priority, &f.Description); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature")
		}
		f.Priority = model.FeaturePriority(priority)
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list features iterate")
}

// ---- MatrixStore ----

func (s *PostgresStore) UpsertCell(ctx context.Context, competitorID, featureID string, patch model.CellPatch) (*model.CompetitorFeature, error) {
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
		_, err := s.pool.Exec(ctx,
			`INSERT INTO competitor_features (id, competitor_id, feature_id, has_feature, implementation_quality, notes, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			cell.ID, cell.CompetitorID, cell.FeatureID, cell.HasFeature, string(cell.Quality), cell.Notes, cell.UpdatedAt,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert cell %s/%s", competitorID, featureID)
		}
		return &cell, nil
	}

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

	_, err = s.pool.Exec(ctx,
		`UPDATE competitor_features SET has_feature = $1, implementation_quality = $2, notes = $3, updated_at = $4
		 WHERE id = $5`,
		cell.HasFeature, string(cell.Quality), cell.Notes, cell.UpdatedAt, cell.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update cell %s/%s", competitorID, featureID)
	}
	return &cell, nil
}

func (s *PostgresStore) GetCell(ctx context.Context, competitorID, featureID string) (*model.CompetitorFeature, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, competitor_id, feature_id, has_feature, implementation_quality, notes, updated_at
		 FROM competitor_features WHERE competitor_id = $1 AND feature_id = $2`,
		competitorID, featureID,
	)
	cell, err := scanPGCell(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get cell %s/%s", competitorID, featureID)
	}
	return cell, nil
}

func (s *PostgresStore) ListCells(ctx context.Context, competitorID string) ([]model.CompetitorFeature, error) {
	query := `SELECT id, competitor_id, feature_id, has_feature, implementation_quality, notes, updated_at
	          FROM competitor_features`
	var args []any
	if competitorID != "" {
		query += ` WHERE competitor_id = $1`
		args = append(args, competitorID)
	}
	query += ` ORDER BY competitor_id, feature_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cells")
	}
	defer rows.Close()

	var out []model.CompetitorFeature
	for rows.Next() {
		cell, err := scanPGCell(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan cell")
		}
		out = append(out, *cell)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list cells iterate")
}

func (s *PostgresStore) ReassignCells(ctx context.Context, fromID, toID string) (int, int, error) {
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
			if cell.HasFeature && !existing.HasFeature {
				t := true
				if _, err := s.UpsertCell(ctx, toID, cell.FeatureID, model.CellPatch{HasFeature: &t}); err != nil {
					return moved, discarded, err
				}
			}
			// Legacy screenshots hang off the cell row; re-point them at the
			// survivor's cell before the duplicate goes away.
			if _, err := s.pool.Exec(ctx,
				`UPDATE relation_screenshots SET competitor_feature_id = $1 WHERE competitor_feature_id = $2`,
				existing.ID, cell.ID,
			); err != nil {
				return moved, discarded, eris.Wrapf(err, "postgres: repoint legacy screenshots from cell %s", cell.ID)
			}
			if _, err := s.pool.Exec(ctx, `DELETE FROM competitor_features WHERE id = $1`, cell.ID); err != nil {
				return moved, discarded, eris.Wrapf(err, "postgres: discard duplicate cell %s", cell.ID)
			}
			discarded++
			continue
		}
		if _, err := s.pool.Exec(ctx,
			`UPDATE competitor_features SET competitor_id = $1, updated_at = $2 WHERE id = $3`,
			toID, time.Now().UTC(), cell.ID,
		); err != nil {
			return moved, discarded, eris.Wrapf(err, "postgres: move cell %s", cell.ID)
		}
		moved++
	}
	return moved, discarded, nil
}

func (s *PostgresStore) RecomputeCoverage(ctx context.Context, competitorID string) (float64, error) {
	var total, has int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM features`).Scan(&total); err != nil {
		return 0, eris.Wrap(err, "postgres: count features")
	}
	if total == 0 {
		return 0, nil
	}
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM competitor_features WHERE competitor_id = $1 AND has_feature`,
		competitorID,
	).Scan(&has); err != nil {
		return 0, eris.Wrapf(err, "postgres: count coverage for %s", competitorID)
	}

	pct := math.Round(float64(has)/float64(total)*1000) / 10

	var industry string
	err := s.pool.QueryRow(ctx,
		`SELECT industry FROM competitors WHERE id = $1`, competitorID,
	).Scan(&industry)
	if err == pgx.ErrNoRows {
		return 0, eris.Errorf("competitor not found: %s", competitorID)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: load competitor %s", competitorID)
	}
	if industry == "" {
		industry = "Crypto Exchange"
	}

	desc := fmt.Sprintf("%s - coverage: %.1f%%", industry, pct)
	tag, err := s.pool.Exec(ctx,
		`UPDATE competitors SET description = $1, updated_at = $2 WHERE id = $3`,
		desc, time.Now().UTC(), competitorID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: write coverage for %s", competitorID)
	}
	if tag.RowsAffected() == 0 {
		return 0, eris.Errorf("competitor not found: %s", competitorID)
	}
	return pct, nil
}

func (s *PostgresStore) DeleteCell(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM competitor_features WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete cell %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("cell not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ResetMatrix(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE competitor_features SET has_feature = false, updated_at = $1 WHERE has_feature`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reset matrix")
	}
	return int(tag.RowsAffected()), nil
}

// ---- ScreenshotStore ----

const pgScreenshotUnion = `
SELECT id, competitor_id, feature_id, file_path, file_name, file_size, mime_type,
       is_onboarding, upload_source, caption, class_method, confidence, false AS legacy, created_at
  FROM screenshots
UNION ALL
SELECT ls.id, COALESCE(cf.competitor_id, ''), cf.feature_id, ls.file_path, ls.file_name, ls.file_size,
       ls.mime_type, false, 'legacy-import', ls.caption, '', 0, true AS legacy, ls.created_at
  FROM relation_screenshots ls
  LEFT JOIN competitor_features cf ON cf.id = ls.competitor_feature_id
`

func (s *PostgresStore) ListScreenshots(ctx context.Context, filter model.ScreenshotFilter) ([]model.Screenshot, error) {
	query := `SELECT * FROM (` + pgScreenshotUnion + `) u WHERE true`
	var args []any

	if filter.CompetitorID != "" {
		args = append(args, filter.CompetitorID)
		query += fmt.Sprintf(` AND competitor_id = $%d`, len(args))
	}
	if filter.FeatureID != "" {
		args = append(args, filter.FeatureID)
		query += fmt.Sprintf(` AND feature_id = $%d`, len(args))
	}
	if filter.Unassigned {
		query += ` AND feature_id IS NULL`
	}
	query += ` ORDER BY file_path`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list screenshots")
	}
	defer rows.Close()

	var out []model.Screenshot
	for rows.Next() {
		sc, err := scanPGScreenshot(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan screenshot")
		}
		out = append(out, *sc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list screenshots iterate")
}

func (s *PostgresStore) CreateScreenshot(ctx context.Context, sc model.Screenshot) (*model.Screenshot, bool, error) {
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
	_, err = s.pool.Exec(ctx,
		`INSERT INTO screenshots (id, competitor_id, feature_id, file_path, file_name, file_size, mime_type,
		                          is_onboarding, upload_source, caption, class_method, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sc.ID, sc.CompetitorID, sc.FeatureID, sc.FilePath, sc.FileName, sc.FileSize, sc.MimeType,
		sc.IsOnboarding, sc.UploadSource, sc.Caption, string(sc.ClassMethod), sc.Confidence, sc.CreatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: insert screenshot %s", sc.FilePath)
	}
	return &sc, true, nil
}

func (s *PostgresStore) FindScreenshotByNaturalKey(ctx context.Context, competitorID, fileNameOrPath string) (*model.Screenshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT * FROM (`+pgScreenshotUnion+`) u
		 WHERE competitor_id = $1 AND (file_path = $2 OR file_name = $2) LIMIT 1`,
		competitorID, fileNameOrPath,
	)
	sc, err := scanPGScreenshot(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find screenshot %s/%s", competitorID, fileNameOrPath)
	}
	return sc, nil
}

func (s *PostgresStore) ReassignFeature(ctx context.Context, id string, featureID *string) error {
	var isLegacy bool
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) > 0 FROM relation_screenshots WHERE id = $1`, id,
	).Scan(&isLegacy); err != nil {
		return eris.Wrapf(err, "postgres: check representation of %s", id)
	}
	if isLegacy {
		return eris.Errorf("screenshot %s is a legacy record; its feature is fixed by its matrix cell", id)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE screenshots SET feature_id = $1 WHERE id = $2`, featureID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: reassign feature of %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("screenshot not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ReassignScreenshots(ctx context.Context, fromID, toID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE screenshots SET competitor_id = $1 WHERE competitor_id = $2`, toID, fromID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: reassign screenshots %s -> %s", fromID, toID)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteScreenshot(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM screenshots WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete screenshot %s", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	tag, err = s.pool.Exec(ctx, `DELETE FROM relation_screenshots WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete legacy screenshot %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("screenshot not found: %s", id)
	}
	return nil
}

// ---- scan helpers ----

func scanPGCell(row scannable) (*model.CompetitorFeature, error) {
	var cell model.CompetitorFeature
	var quality string
	err := row.Scan(&cell.ID, &cell.CompetitorID, &cell.FeatureID, &cell.HasFeature, &quality, &cell.Notes, &cell.UpdatedAt)
	if err != nil {
		return nil, err
	}
	cell.Quality = model.Quality(quality)
	return &cell, nil
}

func scanPGScreenshot(row scannable) (*model.Screenshot, error) {
	var sc model.Screenshot
	var method string
	err := row.Scan(&sc.ID, &sc.CompetitorID, &sc.FeatureID, &sc.FilePath, &sc.FileName, &sc.FileSize,
		&sc.MimeType, &sc.IsOnboarding, &sc.UploadSource, &sc.Caption, &method, &sc.Confidence, &sc.Legacy, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	sc.ClassMethod = model.ClassMethod(method)
	return &sc, nil
}

// Package store persists competitors, features, matrix cells and both
// screenshot representations behind one interface, with SQLite and Postgres
// implementations.
package store

import (
	"context"

	"github.com/competitorlens/lens-cli/internal/model"
)

// SizeTolerance is the byte slack allowed when matching screenshots by file
// size against a store that may have re-encoded the image.
const SizeTolerance = 2048

// EntityStore manages Competitor and Feature lifecycle. Competitors may be
// created on first sight during reconciliation; Features only through
// seeding.
type EntityStore interface {
	CreateCompetitor(ctx context.Context, c model.Competitor) (*model.Competitor, error)
	// GetCompetitorByName matches the canonical name case-insensitively
	// after trimming. Returns (nil, nil) when absent.
	GetCompetitorByName(ctx context.Context, name string) (*model.Competitor, error)
	ListCompetitors(ctx context.Context) ([]model.Competitor, error)
	UpdateCompetitor(ctx context.Context, c model.Competitor) error
	// DeleteCompetitor removes the competitor and cascades to its matrix
	// cells and screenshots. Merge re-points children first.
	DeleteCompetitor(ctx context.Context, id string) error

	UpsertFeature(ctx context.Context, f model.Feature) (*model.Feature, error)
	// GetFeatureByName returns (nil, nil) when absent; callers must not
	// create features on a miss.
	GetFeatureByName(ctx context.Context, name string) (*model.Feature, error)
	ListFeatures(ctx context.Context) ([]model.Feature, error)
}

// MatrixStore manages the competitor/feature relation. All writes are
// upserts keyed on (competitorID, featureID), never blind inserts.
type MatrixStore interface {
	// UpsertCell inserts the cell if absent, else merges only the fields the
	// patch supplies.
	UpsertCell(ctx context.Context, competitorID, featureID string, patch model.CellPatch) (*model.CompetitorFeature, error)
	GetCell(ctx context.Context, competitorID, featureID string) (*model.CompetitorFeature, error)
	// ListCells returns all cells, or one competitor's when competitorID is
	// non-empty.
	ListCells(ctx context.Context, competitorID string) ([]model.CompetitorFeature, error)
	// ReassignCells moves every cell from one competitor to another,
	// discarding moves that would violate (competitorID, featureID)
	// uniqueness. Returns moved and discarded counts.
	ReassignCells(ctx context.Context, fromID, toID string) (moved, discarded int, err error)
	// RecomputeCoverage writes "<industry> - coverage: N%" back into the
	// competitor description and returns the percentage (one decimal).
	RecomputeCoverage(ctx context.Context, competitorID string) (float64, error)
	// DeleteCell removes one cell by id. Validation cleanup uses this for
	// cells with dangling references.
	DeleteCell(ctx context.Context, id string) error
	// ResetMatrix clears every HasFeature flag. This is the only operation
	// allowed to regress HasFeature to false.
	ResetMatrix(ctx context.Context) (int, error)
}

// ScreenshotStore normalizes the legacy relation-scoped and the current flat
// screenshot representations behind one interface. Reads span both; writes
// target the current model.
type ScreenshotStore interface {
	ListScreenshots(ctx context.Context, filter model.ScreenshotFilter) ([]model.Screenshot, error)
	// CreateScreenshot is a logged no-op (created=false) when a record with
	// the same (competitorID, path or file name) already exists in either
	// representation. Never a silent second insert.
	CreateScreenshot(ctx context.Context, s model.Screenshot) (created *model.Screenshot, ok bool, err error)
	// FindScreenshotByNaturalKey matches on file path or file name for the
	// given competitor, across both representations. (nil, nil) when absent.
	FindScreenshotByNaturalKey(ctx context.Context, competitorID, fileNameOrPath string) (*model.Screenshot, error)
	// ReassignFeature repoints (or clears, when featureID is nil) the feature
	// reference of a current-model screenshot. Legacy records derive their
	// feature from their matrix cell and are rejected.
	ReassignFeature(ctx context.Context, id string, featureID *string) error
	// ReassignScreenshots moves every screenshot from one competitor to
	// another and returns how many moved. Used by duplicate merge; must
	// never lose a screenshot.
	ReassignScreenshots(ctx context.Context, fromID, toID string) (int, error)
	DeleteScreenshot(ctx context.Context, id string) error
}

// Store is the full persistence surface handed to a pipeline run. Stores are
// constructed explicitly and passed in; there is no shared global handle.
type Store interface {
	EntityStore
	MatrixStore
	ScreenshotStore

	Migrate(ctx context.Context) error
	Close() error
}

// Package validate runs data integrity checks over the stored records and
// optionally repairs the violations that are safe to repair.
package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/model"
	"github.com/competitorlens/lens-cli/internal/store"
)

// MaxSamples caps how many findings a report carries. The counts stay exact;
// only the itemized list is truncated.
const MaxSamples = 50

const (
	CheckScreenshotCompetitor = "screenshot-competitor-reference"
	CheckScreenshotFeature    = "screenshot-feature-reference"
	CheckScreenshotFile       = "screenshot-file-exists"
	CheckScreenshotMime       = "screenshot-mime-type"
	CheckUnassigned           = "screenshot-unassigned"
	CheckCellReferences       = "matrix-cell-references"
	CheckCellEvidence         = "matrix-cell-evidence"
)

// Reporter runs integrity checks against a store.
type Reporter struct {
	store store.Store
	root  string
}

func New(s store.Store) *Reporter {
	return &Reporter{store: s}
}

// NewWithRoot also checks that each screenshot's file path exists under the
// given storage root.
func NewWithRoot(s store.Store, root string) *Reporter {
	return &Reporter{store: s, root: root}
}

type findings struct {
	issues []Finding
}

// Finding pairs a reportable issue with the identity needed to repair it.
type Finding struct {
	Issue        model.Issue
	ScreenshotID string // set when deleting the screenshot repairs it
	CellID       string // set when the cell is the violating record
}

// Run executes every check and returns one structured report.
func (r *Reporter) Run(ctx context.Context) (*model.ValidationReport, []Finding, error) {
	competitors, err := r.store.ListCompetitors(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "validate: list competitors")
	}
	features, err := r.store.ListFeatures(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "validate: list features")
	}
	screenshots, err := r.store.ListScreenshots(ctx, model.ScreenshotFilter{})
	if err != nil {
		return nil, nil, eris.Wrap(err, "validate: list screenshots")
	}
	cells, err := r.store.ListCells(ctx, "")
	if err != nil {
		return nil, nil, eris.Wrap(err, "validate: list cells")
	}

	competitorIDs := make(map[string]bool, len(competitors))
	for _, c := range competitors {
		competitorIDs[c.ID] = true
	}
	featureIDs := make(map[string]bool, len(features))
	for _, f := range features {
		featureIDs[f.ID] = true
	}

	var all findings
	report := &model.ValidationReport{CreatedAt: time.Now().UTC()}

	report.Checks = append(report.Checks,
		checkScreenshotCompetitors(screenshots, competitorIDs, &all),
		checkScreenshotFeatures(screenshots, featureIDs, &all),
		checkMimeTypes(screenshots, &all),
		checkUnassigned(screenshots, &all),
		checkCells(cells, competitorIDs, featureIDs, &all),
		checkCellEvidence(cells, screenshots, &all),
	)
	if r.root != "" {
		report.Checks = append(report.Checks, checkFilesExist(r.root, screenshots, &all))
	}

	for _, c := range report.Checks {
		report.Total += c.Total
		report.Valid += c.Valid
		report.Invalid += c.Invalid
	}

	sort.SliceStable(all.issues, func(i, j int) bool {
		return all.issues[i].Issue.Severity.Rank() < all.issues[j].Issue.Severity.Rank()
	})
	for i, f := range all.issues {
		if i >= MaxSamples {
			report.Truncated = len(all.issues) - MaxSamples
			break
		}
		report.Samples = append(report.Samples, f.Issue)
	}

	zap.L().Info("validation finished",
		zap.Int("total", report.Total),
		zap.Int("invalid", report.Invalid),
		zap.Int("truncated", report.Truncated),
	)
	return report, all.issues, nil
}

func checkScreenshotCompetitors(screenshots []model.Screenshot, competitorIDs map[string]bool, out *findings) model.CheckResult {
	result := model.CheckResult{Name: CheckScreenshotCompetitor, Total: len(screenshots)}
	for _, sc := range screenshots {
		if sc.CompetitorID != "" && competitorIDs[sc.CompetitorID] {
			result.Valid++
			continue
		}
		result.Invalid++
		out.issues = append(out.issues, Finding{
			Issue: model.Issue{
				Severity: model.SeverityError,
				Check:    CheckScreenshotCompetitor,
				Subject:  sc.FilePath,
				Detail:   fmt.Sprintf("screenshot %s references missing competitor %q", sc.ID, sc.CompetitorID),
			},
			ScreenshotID: sc.ID,
		})
	}
	return result
}

func checkScreenshotFeatures(screenshots []model.Screenshot, featureIDs map[string]bool, out *findings) model.CheckResult {
	result := model.CheckResult{Name: CheckScreenshotFeature}
	for _, sc := range screenshots {
		if sc.FeatureID == nil {
			continue
		}
		result.Total++
		if featureIDs[*sc.FeatureID] {
			result.Valid++
			continue
		}
		result.Invalid++
		out.issues = append(out.issues, Finding{
			Issue: model.Issue{
				Severity: model.SeverityError,
				Check:    CheckScreenshotFeature,
				Subject:  sc.FilePath,
				Detail:   fmt.Sprintf("screenshot %s references missing feature %q", sc.ID, *sc.FeatureID),
			},
			ScreenshotID: sc.ID,
		})
	}
	return result
}

// checkUnassigned flags screenshots without a feature. These are warnings:
// an orphan awaits manual assignment and must never be deleted by cleanup.
func checkUnassigned(screenshots []model.Screenshot, out *findings) model.CheckResult {
	result := model.CheckResult{Name: CheckUnassigned, Total: len(screenshots)}
	for _, sc := range screenshots {
		if sc.FeatureID != nil {
			result.Valid++
			continue
		}
		result.Invalid++
		out.issues = append(out.issues, Finding{
			Issue: model.Issue{
				Severity: model.SeverityWarning,
				Check:    CheckUnassigned,
				Subject:  sc.FilePath,
				Detail:   fmt.Sprintf("screenshot %s has no feature assigned", sc.ID),
			},
		})
	}
	return result
}

func checkMimeTypes(screenshots []model.Screenshot, out *findings) model.CheckResult {
	result := model.CheckResult{Name: CheckScreenshotMime, Total: len(screenshots)}
	for _, sc := range screenshots {
		if strings.HasPrefix(sc.MimeType, "image/") {
			result.Valid++
			continue
		}
		result.Invalid++
		out.issues = append(out.issues, Finding{
			Issue: model.Issue{
				Severity: model.SeverityWarning,
				Check:    CheckScreenshotMime,
				Subject:  sc.FilePath,
				Detail:   fmt.Sprintf("screenshot %s has non-image MIME type %q", sc.ID, sc.MimeType),
			},
		})
	}
	return result
}

// checkFilesExist verifies each stored file path against the storage root.
// Missing files are errors but not cleanup candidates: the record may be the
// only surviving evidence of the capture.
func checkFilesExist(root string, screenshots []model.Screenshot, out *findings) model.CheckResult {
	result := model.CheckResult{Name: CheckScreenshotFile, Total: len(screenshots)}
	for _, sc := range screenshots {
		if _, err := os.Stat(filepath.Join(root, sc.FilePath)); err == nil {
			result.Valid++
			continue
		}
		result.Invalid++
		out.issues = append(out.issues, Finding{
			Issue: model.Issue{
				Severity: model.SeverityError,
				Check:    CheckScreenshotFile,
				Subject:  sc.FilePath,
				Detail:   fmt.Sprintf("screenshot %s: missing file", sc.ID),
			},
		})
	}
	return result
}

func checkCells(cells []model.CompetitorFeature, competitorIDs, featureIDs map[string]bool, out *findings) model.CheckResult {
	result := model.CheckResult{Name: CheckCellReferences, Total: len(cells)}
	for _, cell := range cells {
		if competitorIDs[cell.CompetitorID] && featureIDs[cell.FeatureID] {
			result.Valid++
			continue
		}
		result.Invalid++
		out.issues = append(out.issues, Finding{
			Issue: model.Issue{
				Severity: model.SeverityError,
				Check:    CheckCellReferences,
				Subject:  cell.ID,
				Detail:   fmt.Sprintf("cell references competitor %q and feature %q", cell.CompetitorID, cell.FeatureID),
			},
			CellID: cell.ID,
		})
	}
	return result
}

// checkCellEvidence flags claimed features with nothing backing them: no
// screenshot reaches the cell and no note explains the claim. Informational
// only; the flag may predate the screenshot archive.
func checkCellEvidence(cells []model.CompetitorFeature, screenshots []model.Screenshot, out *findings) model.CheckResult {
	attached := make(map[string]bool)
	for _, sc := range screenshots {
		if sc.FeatureID != nil {
			attached[sc.CompetitorID+"/"+*sc.FeatureID] = true
		}
	}

	result := model.CheckResult{Name: CheckCellEvidence}
	for _, cell := range cells {
		if !cell.HasFeature {
			continue
		}
		result.Total++
		if cell.Notes != "" || attached[cell.CompetitorID+"/"+cell.FeatureID] {
			result.Valid++
			continue
		}
		result.Invalid++
		out.issues = append(out.issues, Finding{
			Issue: model.Issue{
				Severity: model.SeverityInfo,
				Check:    CheckCellEvidence,
				Subject:  cell.ID,
				Detail: fmt.Sprintf("cell claims competitor %s has feature %s with no screenshot or note",
					cell.CompetitorID, cell.FeatureID),
			},
		})
	}
	return result
}

// CleanupResult counts what a repair pass removed.
type CleanupResult struct {
	ScreenshotsDeleted int
	CellsDeleted       int
}

// Cleanup deletes the referential violations from a validation pass.
// Only error-severity findings with a concrete record to remove qualify;
// unassigned screenshots are reassignment candidates and always survive.
func (r *Reporter) Cleanup(ctx context.Context, all []Finding) (*CleanupResult, error) {
	result := &CleanupResult{}
	for _, f := range all {
		if f.Issue.Severity != model.SeverityError {
			continue
		}
		switch {
		case f.ScreenshotID != "":
			if err := r.store.DeleteScreenshot(ctx, f.ScreenshotID); err != nil {
				return result, eris.Wrapf(err, "validate: delete screenshot %s", f.ScreenshotID)
			}
			result.ScreenshotsDeleted++
		case f.CellID != "":
			if err := r.store.DeleteCell(ctx, f.CellID); err != nil {
				return result, eris.Wrapf(err, "validate: delete cell %s", f.CellID)
			}
			result.CellsDeleted++
		}
	}
	zap.L().Info("validation cleanup finished",
		zap.Int("screenshots_deleted", result.ScreenshotsDeleted),
		zap.Int("cells_deleted", result.CellsDeleted),
	)
	return result, nil
}

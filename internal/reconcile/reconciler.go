package reconcile

import (
	"context"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/competitorlens/lens-cli/internal/classify"
	"github.com/competitorlens/lens-cli/internal/model"
	"github.com/competitorlens/lens-cli/internal/resolve"
	"github.com/competitorlens/lens-cli/internal/store"
	"github.com/competitorlens/lens-cli/internal/validate"
)

// Options tunes a reconciliation run.
type Options struct {
	// DryRun classifies and reports without writing. The report shape is
	// identical to a write run so the two can be diffed.
	DryRun bool
	// Workers bounds the classification goroutines. Zero means NumCPU,
	// capped at 8.
	Workers int
}

// Reconciler drives one run: scan, classify, upsert, validate, report.
// Classification fans out; all writes stay on one goroutine in scan order,
// so reruns are deterministic.
type Reconciler struct {
	store      store.Store
	resolver   *resolve.Resolver
	classifier *classify.Classifier
	opts       Options
}

func New(s store.Store, r *resolve.Resolver, c *classify.Classifier, opts Options) *Reconciler {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
		if opts.Workers > 8 {
			opts.Workers = 8
		}
	}
	return &Reconciler{store: s, resolver: r, classifier: c, opts: opts}
}

// Run executes the full state machine. Item-level problems are recorded in
// the report and never abort the run; only cancellation and infrastructure
// failures do.
func (r *Reconciler) Run(ctx context.Context, root string) (*model.RunReport, error) {
	report := model.NewRunReport(root, r.opts.DryRun)
	log := zap.L().With(zap.String("root", root), zap.Bool("dry_run", r.opts.DryRun))

	trackPhase := func(state model.RunState, fn func() (map[string]any, error)) error {
		start := time.Now()
		metadata, err := fn()
		phase := model.PhaseResult{
			State:    state,
			Duration: time.Since(start).Milliseconds(),
			Metadata: metadata,
		}
		if err != nil {
			phase.Error = err.Error()
			log.Error("phase failed", zap.String("state", string(state)),
				zap.Int64("duration_ms", phase.Duration), zap.Error(err))
		} else {
			log.Info("phase complete", zap.String("state", string(state)),
				zap.Int64("duration_ms", phase.Duration))
		}
		report.Phases = append(report.Phases, phase)
		return err
	}

	var items []Item
	err := trackPhase(model.StateScanning, func() (map[string]any, error) {
		var err error
		items, err = Scan(root)
		report.Scanned = len(items)
		return map[string]any{"files": len(items)}, err
	})
	if err != nil {
		report.Duration = time.Since(report.StartedAt)
		return report, err
	}

	guesses := make([]classify.Guess, len(items))
	err = trackPhase(model.StateClassifying, func() (map[string]any, error) {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Workers)
		for i := range items {
			i := i
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				guesses[i] = r.classifier.Classify(items[i].RelPath, items[i].FileName)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, guess := range guesses {
			report.Classified[guess.Method]++
		}
		return map[string]any{"workers": r.opts.Workers}, nil
	})
	if err != nil {
		report.Duration = time.Since(report.StartedAt)
		return report, err
	}

	touched := map[string]bool{}
	err = trackPhase(model.StateUpserting, func() (map[string]any, error) {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return map[string]any{"processed": i}, err
			}
			r.upsertItem(ctx, item, guesses[i], report, touched)
		}
		return map[string]any{"processed": len(items)}, nil
	})
	if err != nil {
		report.Duration = time.Since(report.StartedAt)
		return report, err
	}

	_ = trackPhase(model.StateValidating, func() (map[string]any, error) {
		vr, _, err := validate.NewWithRoot(r.store, root).Run(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"invalid": vr.Invalid, "total": vr.Total}, nil
	})

	err = trackPhase(model.StateReporting, func() (map[string]any, error) {
		if r.opts.DryRun {
			return map[string]any{"competitors": len(touched)}, nil
		}
		for id := range touched {
			if _, err := r.store.RecomputeCoverage(ctx, id); err != nil {
				return nil, err
			}
		}
		return map[string]any{"competitors": len(touched)}, nil
	})

	report.Duration = time.Since(report.StartedAt)
	log.Info("run finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("created", report.Created),
		zap.Int("skipped_duplicate", report.SkippedDuplicate),
		zap.Int("orphaned", report.Orphaned),
		zap.Int("failed", len(report.Failed)),
	)
	return report, err
}

func (r *Reconciler) upsertItem(ctx context.Context, item Item, guess classify.Guess, report *model.RunReport, touched map[string]bool) {
	fail := func(stage string, err error) {
		report.Failed = append(report.Failed, model.ItemFailure{
			Path:  item.RelPath,
			Stage: stage,
			Error: err.Error(),
		})
	}

	var competitor *model.Competitor
	var err error
	if r.opts.DryRun {
		// Never create during a dry run; a missing competitor just means
		// everything under its folder would be new.
		competitor, err = r.resolver.PeekCompetitor(ctx, item.CompetitorLabel())
	} else {
		competitor, err = r.resolver.ResolveCompetitor(ctx, item.CompetitorLabel())
	}
	if err != nil {
		fail("resolve-competitor", err)
		return
	}

	var featureID *string
	if guess.Method != model.MatchNone {
		feature, err := r.resolver.ResolveFeature(ctx, guess.Feature)
		if err != nil {
			fail("resolve-feature", err)
			return
		}
		if feature != nil {
			featureID = &feature.ID
		} else {
			zap.L().Warn("classified feature not in taxonomy",
				zap.String("file", item.RelPath),
				zap.String("feature", guess.Feature),
			)
		}
	}
	if featureID == nil {
		report.Orphaned++
	}

	if r.opts.DryRun {
		if competitor == nil {
			report.Created++
			return
		}
		existing, err := r.store.FindScreenshotByNaturalKey(ctx, competitor.ID, item.RelPath)
		if err == nil && existing == nil {
			existing, err = r.store.FindScreenshotByNaturalKey(ctx, competitor.ID, item.FileName)
		}
		if err != nil {
			fail("persist", err)
			return
		}
		if existing != nil {
			report.SkippedDuplicate++
		} else {
			report.Created++
		}
		touched[competitor.ID] = true
		return
	}

	_, created, err := r.store.CreateScreenshot(ctx, model.Screenshot{
		CompetitorID: competitor.ID,
		FeatureID:    featureID,
		FilePath:     item.RelPath,
		FileName:     item.FileName,
		FileSize:     item.Size,
		MimeType:     item.MimeType,
		IsOnboarding: strings.Contains(classify.Normalize(item.RelPath), "onboarding"),
		UploadSource: "smart-import",
		ClassMethod:  guess.Method,
		Confidence:   guess.Method.Confidence(),
	})
	if err != nil {
		fail("persist", err)
		return
	}
	if created {
		report.Created++
	} else {
		report.SkippedDuplicate++
	}

	if featureID != nil {
		has := true
		if _, err := r.store.UpsertCell(ctx, competitor.ID, *featureID, model.CellPatch{HasFeature: &has}); err != nil {
			fail("persist", err)
			return
		}
	}
	touched[competitor.ID] = true
}

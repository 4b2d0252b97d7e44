package resolve

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/classify"
	"github.com/competitorlens/lens-cli/internal/model"
	"github.com/competitorlens/lens-cli/internal/store"
)

// Resolver turns raw labels into canonical records. Competitors may be
// created on first sight; features never are, an unknown feature label is
// the caller's signal to leave the screenshot unassigned.
type Resolver struct {
	store   store.Store
	aliases map[string]string

	mu    sync.Mutex
	cache map[string]*model.Competitor
}

func New(s store.Store) *Resolver {
	return NewWithAliases(s, DefaultAliases)
}

func NewWithAliases(s store.Store, aliases map[string]string) *Resolver {
	return &Resolver{
		store:   s,
		aliases: normalizedAliases(aliases),
		cache:   make(map[string]*model.Competitor),
	}
}

// CanonicalName applies the alias table to a raw label. Unknown labels pass
// through trimmed but otherwise untouched.
func (r *Resolver) CanonicalName(raw string) string {
	if canonical, ok := r.aliases[classify.Normalize(raw)]; ok {
		return canonical
	}
	return strings.TrimSpace(raw)
}

// PeekCompetitor looks a label up without ever creating. Lookup order:
// alias table, exact name, containment between normalized names. Returns
// (nil, nil) when nothing matches.
func (r *Resolver) PeekCompetitor(ctx context.Context, raw string) (*model.Competitor, error) {
	name := r.CanonicalName(raw)
	if name == "" {
		return nil, eris.New("resolve: empty competitor label")
	}
	key := classify.Normalize(name)

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	c, err := r.store.GetCompetitorByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c, err = r.fuzzyMatch(ctx, key)
		if err != nil {
			return nil, err
		}
	}
	if c != nil {
		r.mu.Lock()
		r.cache[key] = c
		r.mu.Unlock()
	}
	return c, nil
}

// ResolveCompetitor is PeekCompetitor plus create-on-miss.
func (r *Resolver) ResolveCompetitor(ctx context.Context, raw string) (*model.Competitor, error) {
	c, err := r.PeekCompetitor(ctx, raw)
	if err != nil || c != nil {
		return c, err
	}

	name := r.CanonicalName(raw)
	key := classify.Normalize(name)
	c, err = r.store.CreateCompetitor(ctx, model.Competitor{
		Name:     name,
		Region:   regionFor(key),
		Industry: "Crypto Exchange",
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("created competitor",
		zap.String("name", c.Name),
		zap.String("region", string(c.Region)),
		zap.String("label", raw),
	)

	r.mu.Lock()
	r.cache[key] = c
	r.mu.Unlock()
	return c, nil
}

// fuzzyMatch accepts a containment match between normalized names, so
// "btcturk mobile" still lands on BTCTurk. Requires at least four characters
// to keep short labels from latching onto everything.
func (r *Resolver) fuzzyMatch(ctx context.Context, key string) (*model.Competitor, error) {
	if len(key) < 4 {
		return nil, nil
	}
	all, err := r.store.ListCompetitors(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		existing := classify.Normalize(all[i].Name)
		if existing == "" {
			continue
		}
		if strings.Contains(key, existing) || strings.Contains(existing, key) {
			return &all[i], nil
		}
	}
	return nil, nil
}

// ResolveFeature maps a feature label onto an existing feature or returns
// (nil, nil). Reconciliation must never grow the feature taxonomy.
func (r *Resolver) ResolveFeature(ctx context.Context, name string) (*model.Feature, error) {
	f, err := r.store.GetFeatureByName(ctx, name)
	if err != nil || f != nil {
		return f, err
	}

	key := classify.Normalize(name)
	all, err := r.store.ListFeatures(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if classify.Normalize(all[i].Name) == key {
			return &all[i], nil
		}
	}
	return nil, nil
}

func regionFor(key string) model.Region {
	if strings.HasSuffix(key, " tr") || strings.HasSuffix(key, "tr") ||
		strings.Contains(key, "turk") || strings.Contains(key, "kripto") {
		return model.RegionTR
	}
	return model.RegionGlobal
}

// MergeReport summarizes what a duplicate merge moved and removed.
type MergeReport struct {
	ScreenshotsMoved int
	CellsMoved       int
	CellsDiscarded   int
	Removed          []string
}

// MergeDuplicates folds loser competitors into the survivor: screenshots and
// matrix cells move first, then each loser is deleted. Already-deleted
// losers are skipped, so a re-run after a partial failure converges.
func (r *Resolver) MergeDuplicates(ctx context.Context, survivorID string, loserIDs []string) (*MergeReport, error) {
	report := &MergeReport{}
	for _, loserID := range loserIDs {
		if loserID == survivorID {
			return nil, eris.Errorf("resolve: survivor %s listed for removal", survivorID)
		}

		moved, err := r.store.ReassignScreenshots(ctx, loserID, survivorID)
		if err != nil {
			return report, eris.Wrapf(err, "resolve: move screenshots from %s", loserID)
		}
		report.ScreenshotsMoved += moved

		cellsMoved, discarded, err := r.store.ReassignCells(ctx, loserID, survivorID)
		if err != nil {
			return report, eris.Wrapf(err, "resolve: move cells from %s", loserID)
		}
		report.CellsMoved += cellsMoved
		report.CellsDiscarded += discarded

		if err := r.store.DeleteCompetitor(ctx, loserID); err != nil {
			if strings.Contains(err.Error(), "not found") {
				zap.L().Debug("merge loser already gone", zap.String("id", loserID))
				continue
			}
			return report, eris.Wrapf(err, "resolve: delete %s", loserID)
		}
		report.Removed = append(report.Removed, loserID)
	}

	r.mu.Lock()
	r.cache = make(map[string]*model.Competitor)
	r.mu.Unlock()

	if _, err := r.store.RecomputeCoverage(ctx, survivorID); err != nil {
		return report, eris.Wrap(err, "resolve: recompute survivor coverage")
	}
	return report, nil
}

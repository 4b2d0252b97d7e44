package matrix

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/classify"
	"github.com/competitorlens/lens-cli/internal/model"
	"github.com/competitorlens/lens-cli/internal/store"
)

// criticalFeatures carry the priority used when ranking gaps on the
// dashboard. Everything else in a critical category defaults to high.
var criticalFeatures = map[string]bool{
	"Sign up with Bank":              true,
	"Sign in with Bank":              true,
	"Convert":                        true,
	"On-Ramp / Off-Ramp (3rd Party)": true,
	"Mobile App":                     true,
}

var highPriorityCategories = map[string]bool{
	"Authentication": true,
	"Trading":        true,
	"Payment":        true,
	"Earn":           true,
}

// SeedFeatures upserts the full feature taxonomy. The classifier keyword
// table is the single source of the feature list, so seeding and
// classification can never disagree about names.
func SeedFeatures(ctx context.Context, s store.EntityStore) (int, error) {
	n := 0
	for _, entry := range classify.DefaultTable {
		f := model.Feature{
			Name:     entry.Feature,
			Category: entry.Category,
			Priority: priorityFor(entry.Feature, entry.Category),
		}
		if _, err := s.UpsertFeature(ctx, f); err != nil {
			return n, eris.Wrapf(err, "seed: feature %s", entry.Feature)
		}
		n++
	}
	zap.L().Info("seeded feature taxonomy", zap.Int("features", n))
	return n, nil
}

func priorityFor(feature, category string) model.FeaturePriority {
	if criticalFeatures[feature] {
		return model.PriorityCritical
	}
	if highPriorityCategories[category] {
		return model.PriorityHigh
	}
	return model.PriorityMedium
}

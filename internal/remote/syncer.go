package remote

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/classify"
	"github.com/competitorlens/lens-cli/internal/model"
	"github.com/competitorlens/lens-cli/internal/store"
)

// PushOptions configures a push run.
type PushOptions struct {
	// Root is the local screenshot tree the file paths are relative to.
	Root string
	// RetryFailed restricts the run to files whose last attempt failed.
	RetryFailed bool
	// ListLimit is passed to the remote screenshot listing. Default: 10000.
	ListLimit int
}

// Pusher uploads local screenshots to the dashboard, strictly one at a time.
// The backend sits behind a public PaaS ingress that throttles bursts, so
// sequential with a minimum delay is the reliable shape, not a worker pool.
type Pusher struct {
	client *Client
	store  store.Store
	cp     *Checkpoint
	opts   PushOptions
}

func NewPusher(client *Client, s store.Store, cp *Checkpoint, opts PushOptions) *Pusher {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 10000
	}
	return &Pusher{client: client, store: s, cp: cp, opts: opts}
}

// remoteState is the one-time snapshot a push run works against.
type remoteState struct {
	competitorsByName map[string]string
	featuresByName    map[string]string
	screenshots       map[string]Screenshot // competitorID + "/" + fileName
}

// Push reconciles local screenshots against the remote set: uploads what is
// missing, restores records whose blob was lost, and skips what already
// matches. Progress is checkpointed after every file.
func (p *Pusher) Push(ctx context.Context) (*model.PushReport, error) {
	start := time.Now()
	report := &model.PushReport{}

	state, err := p.loadRemoteState(ctx)
	if err != nil {
		return report, err
	}

	locals, err := p.store.ListScreenshots(ctx, model.ScreenshotFilter{})
	if err != nil {
		return report, eris.Wrap(err, "push: list local screenshots")
	}
	localCompetitors, err := p.store.ListCompetitors(ctx)
	if err != nil {
		return report, eris.Wrap(err, "push: list local competitors")
	}
	localFeatures, err := p.store.ListFeatures(ctx)
	if err != nil {
		return report, eris.Wrap(err, "push: list local features")
	}
	competitorName := make(map[string]string, len(localCompetitors))
	for _, c := range localCompetitors {
		competitorName[c.ID] = c.Name
	}
	featureName := make(map[string]string, len(localFeatures))
	for _, f := range localFeatures {
		featureName[f.ID] = f.Name
	}

	for _, sc := range locals {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			report.Duration = time.Since(start)
			return report, eris.Wrap(err, "push: cancelled")
		}
		if sc.Legacy {
			// Legacy rows have no local file to send.
			continue
		}
		key := sc.FilePath
		if p.opts.RetryFailed && !p.cp.IsFailed(key) {
			continue
		}
		report.Total++
		if p.cp.IsCompleted(key) {
			report.Skipped++
			continue
		}

		outcome, err := p.pushOne(ctx, sc, competitorName, featureName, state)
		if err != nil {
			report.Failed = append(report.Failed, model.ItemFailure{
				Path: key, Stage: "push", Error: err.Error(),
			})
			if cpErr := p.cp.MarkFailed(key, err.Error()); cpErr != nil {
				report.Duration = time.Since(start)
				return report, cpErr
			}
			continue
		}

		switch outcome {
		case model.PushCompleted:
			report.Uploaded++
		case model.PushRestored:
			report.Restored++
		case model.PushSkipped:
			report.Skipped++
		}
		if err := p.cp.MarkCompleted(key, outcome); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
	}

	report.Duration = time.Since(start)
	zap.L().Info("push finished",
		zap.Int("total", report.Total),
		zap.Int("uploaded", report.Uploaded),
		zap.Int("restored", report.Restored),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (p *Pusher) loadRemoteState(ctx context.Context) (*remoteState, error) {
	competitors, err := p.client.ListCompetitors(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "push: list remote competitors")
	}
	features, err := p.client.ListFeatures(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "push: list remote features")
	}
	screenshots, err := p.client.ListScreenshots(ctx, p.opts.ListLimit)
	if err != nil {
		return nil, eris.Wrap(err, "push: list remote screenshots")
	}

	state := &remoteState{
		competitorsByName: make(map[string]string, len(competitors)),
		featuresByName:    make(map[string]string, len(features)),
		screenshots:       make(map[string]Screenshot, len(screenshots)),
	}
	for _, c := range competitors {
		state.competitorsByName[classify.Normalize(c.Name)] = c.ID
	}
	for _, f := range features {
		state.featuresByName[classify.Normalize(f.Name)] = f.ID
	}
	for _, sc := range screenshots {
		state.screenshots[sc.CompetitorID+"/"+sc.FileName] = sc
	}
	return state, nil
}

func (p *Pusher) pushOne(ctx context.Context, sc model.Screenshot, competitorName, featureName map[string]string, state *remoteState) (model.PushOutcome, error) {
	localName, ok := competitorName[sc.CompetitorID]
	if !ok {
		return "", eris.Errorf("local competitor %s not found", sc.CompetitorID)
	}
	remoteCompetitorID, ok := state.competitorsByName[classify.Normalize(localName)]
	if !ok {
		return "", eris.Errorf("competitor %q does not exist on the remote", localName)
	}

	var remoteFeatureID *string
	if sc.FeatureID != nil {
		name, ok := featureName[*sc.FeatureID]
		if !ok {
			return "", eris.Errorf("local feature %s not found", *sc.FeatureID)
		}
		if id, ok := state.featuresByName[classify.Normalize(name)]; ok {
			remoteFeatureID = &id
		}
		// An unknown remote feature downgrades to an unassigned upload
		// rather than blocking the file.
	}

	path := filepath.Join(p.opts.Root, filepath.FromSlash(sc.FilePath))
	info, err := os.Stat(path)
	if err != nil {
		return "", eris.Wrapf(err, "stat %s", path)
	}

	if existing, ok := state.screenshots[remoteCompetitorID+"/"+sc.FileName]; ok &&
		sizeWithinTolerance(info.Size(), existing.FileSize) {
		blobOK, err := p.client.BlobExists(ctx, existing)
		if err != nil {
			return "", err
		}
		if blobOK {
			return model.PushSkipped, nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "read %s", path)
		}
		if err := p.client.Restore(ctx, RestoreRequest{
			ScreenshotID: existing.ID,
			FileName:     sc.FileName,
			Data:         raw,
		}); err != nil {
			return "", err
		}
		zap.L().Info("restored remote blob",
			zap.String("file", sc.FilePath),
			zap.String("remote_id", existing.ID),
		)
		return model.PushRestored, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "read %s", path)
	}
	created, err := p.client.Upload(ctx, UploadRequest{
		CompetitorID: remoteCompetitorID,
		FeatureID:    remoteFeatureID,
		FileName:     sc.FileName,
		Caption:      sc.Caption,
		IsOnboarding: sc.IsOnboarding,
		Body:         bytes.NewReader(raw),
	})
	if err != nil {
		return "", err
	}
	state.screenshots[remoteCompetitorID+"/"+sc.FileName] = *created
	return model.PushCompleted, nil
}

// sizeWithinTolerance compares file sizes allowing for re-encoding drift on
// the remote side.
func sizeWithinTolerance(a, b int64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= store.SizeTolerance
}

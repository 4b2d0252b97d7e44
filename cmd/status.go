package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/competitorlens/lens-cli/internal/model"
	"github.com/competitorlens/lens-cli/internal/remote"
)

type statusSummary struct {
	Competitors  int         `json:"competitors"`
	Features     int         `json:"features"`
	Cells        int         `json:"cells"`
	CellsFlagged int         `json:"cells_flagged"`
	Screenshots  int         `json:"screenshots"`
	Unassigned   int         `json:"unassigned"`
	Legacy       int         `json:"legacy"`
	LastPush     *pushStatus `json:"last_push,omitempty"`
}

type pushStatus struct {
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	UpdatedAt time.Time `json:"updated_at"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize what the store holds",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer s.Close() //nolint:errcheck

		competitors, err := s.ListCompetitors(ctx)
		if err != nil {
			return eris.Wrap(err, "list competitors")
		}
		features, err := s.ListFeatures(ctx)
		if err != nil {
			return eris.Wrap(err, "list features")
		}
		cells, err := s.ListCells(ctx, "")
		if err != nil {
			return eris.Wrap(err, "list cells")
		}
		screenshots, err := s.ListScreenshots(ctx, model.ScreenshotFilter{})
		if err != nil {
			return eris.Wrap(err, "list screenshots")
		}

		summary := statusSummary{
			Competitors: len(competitors),
			Features:    len(features),
			Cells:       len(cells),
			Screenshots: len(screenshots),
		}
		for _, c := range cells {
			if c.HasFeature {
				summary.CellsFlagged++
			}
		}
		for _, sc := range screenshots {
			if sc.FeatureID == nil {
				summary.Unassigned++
			}
			if sc.Legacy {
				summary.Legacy++
			}
		}

		if cp, err := remote.LoadCheckpoint(cfg.Push.Checkpoint); err == nil {
			completed, failed, updatedAt := cp.Summary()
			if completed > 0 || failed > 0 {
				summary.LastPush = &pushStatus{Completed: completed, Failed: failed, UpdatedAt: updatedAt}
			}
		}

		return printJSON(summary)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	mergeKeep   string
	mergeRemove []string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Fold duplicate competitors into a survivor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer s.Close() //nolint:errcheck

		resolver, err := initResolver(s)
		if err != nil {
			return err
		}

		survivor, err := s.GetCompetitorByName(ctx, resolver.CanonicalName(mergeKeep))
		if err != nil {
			return eris.Wrap(err, "look up survivor")
		}
		if survivor == nil {
			return eris.Errorf("competitor %q not found", mergeKeep)
		}

		loserIDs := make([]string, 0, len(mergeRemove))
		for _, name := range mergeRemove {
			loser, err := s.GetCompetitorByName(ctx, resolver.CanonicalName(name))
			if err != nil {
				return eris.Wrapf(err, "look up %q", name)
			}
			if loser == nil {
				return eris.Errorf("competitor %q not found", name)
			}
			loserIDs = append(loserIDs, loser.ID)
		}

		report, err := resolver.MergeDuplicates(ctx, survivor.ID, loserIDs)
		if err != nil {
			return eris.Wrap(err, "merge")
		}

		zap.L().Info("merge complete",
			zap.String("survivor", survivor.Name),
			zap.Int("screenshots_moved", report.ScreenshotsMoved),
			zap.Int("cells_moved", report.CellsMoved),
			zap.Int("cells_discarded", report.CellsDiscarded),
			zap.Strings("removed", report.Removed),
		)
		return printJSON(report)
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeKeep, "keep", "", "competitor name to keep (required)")
	mergeCmd.Flags().StringSliceVar(&mergeRemove, "remove", nil, "competitor names to fold into the survivor (required)")
	_ = mergeCmd.MarkFlagRequired("keep")
	_ = mergeCmd.MarkFlagRequired("remove")
	rootCmd.AddCommand(mergeCmd)
}

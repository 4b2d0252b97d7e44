package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/matrix"
	"github.com/competitorlens/lens-cli/internal/store"
)

var (
	seedMatrixPath string
	seedReset      bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the feature taxonomy and optionally import a matrix spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer s.Close() //nolint:errcheck

		seeded, err := matrix.SeedFeatures(ctx, s)
		if err != nil {
			return eris.Wrap(err, "seed features")
		}
		zap.L().Info("features seeded", zap.Int("count", seeded))

		if seedReset {
			cleared, err := s.ResetMatrix(ctx)
			if err != nil {
				return eris.Wrap(err, "reset matrix")
			}
			zap.L().Info("matrix reset", zap.Int("cells_cleared", cleared))
		}

		if seedMatrixPath == "" {
			return nil
		}

		resolver, err := initResolver(s)
		if err != nil {
			return err
		}
		importer := matrix.NewImporter(s, resolver)
		if ps, ok := s.(*store.PostgresStore); ok {
			importer = matrix.NewBulkImporter(s, resolver, ps.Pool())
		}
		result, err := importer.Import(ctx, seedMatrixPath)
		if err != nil {
			return eris.Wrap(err, "import matrix")
		}

		zap.L().Info("matrix imported",
			zap.String("path", seedMatrixPath),
			zap.Int("competitors", result.Competitors),
			zap.Int("features", result.Features),
			zap.Int("cells_upserted", result.CellsUpserted),
			zap.Int("unknown_markings", result.UnknownMarkings),
		)
		return printJSON(result)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedMatrixPath, "matrix", "", "path to an XLSX feature matrix to import")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "clear every has-feature flag before importing")
	rootCmd.AddCommand(seedCmd)
}

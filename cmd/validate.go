package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/validate"
)

var (
	validateCleanup bool
	validateRoot    string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check referential integrity across cells and screenshots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer s.Close() //nolint:errcheck

		// The file-existence check only makes sense when the screenshot
		// tree is reachable from here.
		root := validateRoot
		if root == "" {
			root = cfg.Scan.Root
		}
		reporter := validate.New(s)
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			reporter = validate.NewWithRoot(s, root)
		}
		report, all, err := reporter.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		if validateCleanup {
			result, err := reporter.Cleanup(ctx, all)
			if err != nil {
				return eris.Wrap(err, "cleanup")
			}
			zap.L().Info("cleanup complete",
				zap.Int("screenshots_deleted", result.ScreenshotsDeleted),
				zap.Int("cells_deleted", result.CellsDeleted),
			)
		}

		zap.L().Info("validation complete",
			zap.Int("total", report.Total),
			zap.Int("invalid", report.Invalid),
		)
		return printJSON(report)
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateCleanup, "cleanup", false, "delete records with dangling references (orphans survive)")
	validateCmd.Flags().StringVar(&validateRoot, "root", "", "screenshot tree root for the file-existence check (defaults to scan.root)")
	rootCmd.AddCommand(validateCmd)
}

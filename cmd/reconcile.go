package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/reconcile"
)

var (
	reconcileRoot    string
	reconcileDryRun  bool
	reconcileWorkers int
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Scan a screenshot tree, classify and upsert into the matrix",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		root := reconcileRoot
		if root == "" {
			root = cfg.Scan.Root
		}
		workers := reconcileWorkers
		if workers == 0 {
			workers = cfg.Scan.Workers
		}

		s, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer s.Close() //nolint:errcheck

		resolver, err := initResolver(s)
		if err != nil {
			return err
		}
		classifier, err := initClassifier()
		if err != nil {
			return err
		}

		rec := reconcile.New(s, resolver, classifier, reconcile.Options{
			DryRun:  reconcileDryRun,
			Workers: workers,
		})

		report, err := rec.Run(ctx, root)
		if err != nil {
			return eris.Wrap(err, "reconcile")
		}

		// Per-item failures are part of the report, not a run failure.
		zap.L().Info("reconcile complete",
			zap.Bool("dry_run", report.DryRun),
			zap.Int("scanned", report.Scanned),
			zap.Int("created", report.Created),
			zap.Int("skipped_duplicate", report.SkippedDuplicate),
			zap.Int("orphaned", report.Orphaned),
			zap.Int("failed", len(report.Failed)),
		)
		return printJSON(report)
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileRoot, "root", "", "screenshot tree root (defaults to scan.root)")
	reconcileCmd.Flags().BoolVarP(&reconcileDryRun, "dry-run", "d", false, "report what would change without writing")
	reconcileCmd.Flags().IntVar(&reconcileWorkers, "workers", 0, "classification workers (0 = auto)")
	rootCmd.AddCommand(reconcileCmd)
}

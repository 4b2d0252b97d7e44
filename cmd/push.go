package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/competitorlens/lens-cli/internal/remote"
	"github.com/competitorlens/lens-cli/internal/resilience"
)

var (
	pushRoot        string
	pushCheckpoint  string
	pushRetryFailed bool
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload local screenshots to the dashboard backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Dashboard.BaseURL == "" {
			return eris.New("dashboard base URL is required (LENS_DASHBOARD_BASE_URL)")
		}
		if cfg.Dashboard.APIKey == "" {
			return eris.New("dashboard API key is required (LENS_DASHBOARD_API_KEY)")
		}

		root := pushRoot
		if root == "" {
			root = cfg.Scan.Root
		}
		checkpointPath := pushCheckpoint
		if checkpointPath == "" {
			checkpointPath = cfg.Push.Checkpoint
		}

		s, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer s.Close() //nolint:errcheck

		retry := resilience.DefaultRetryConfig()
		if cfg.Dashboard.MaxAttempts > 0 {
			retry.MaxAttempts = cfg.Dashboard.MaxAttempts
		}
		retry.OnRetry = resilience.RetryLogger("dashboard", "request")

		client, err := remote.NewClient(remote.ClientOptions{
			BaseURL:  cfg.Dashboard.BaseURL,
			APIKey:   cfg.Dashboard.APIKey,
			Timeout:  time.Duration(cfg.Dashboard.TimeoutSecs) * time.Second,
			MinDelay: time.Duration(cfg.Dashboard.MinDelayMS) * time.Millisecond,
			Retry:    retry,
		})
		if err != nil {
			return eris.Wrap(err, "init dashboard client")
		}

		checkpoint, err := remote.LoadCheckpoint(checkpointPath)
		if err != nil {
			return eris.Wrap(err, "load checkpoint")
		}

		pusher := remote.NewPusher(client, s, checkpoint, remote.PushOptions{
			Root:        root,
			RetryFailed: pushRetryFailed,
			ListLimit:   cfg.Dashboard.ListLimit,
		})

		report, err := pusher.Push(ctx)
		if err != nil {
			return eris.Wrap(err, "push")
		}

		zap.L().Info("push complete",
			zap.Int("total", report.Total),
			zap.Int("uploaded", report.Uploaded),
			zap.Int("restored", report.Restored),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", len(report.Failed)),
			zap.Bool("cancelled", report.Cancelled),
		)
		return printJSON(report)
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushRoot, "root", "", "screenshot tree root (defaults to scan.root)")
	pushCmd.Flags().StringVar(&pushCheckpoint, "checkpoint", "", "checkpoint file path (defaults to push.checkpoint)")
	pushCmd.Flags().BoolVar(&pushRetryFailed, "retry-failed", false, "only retry items that failed in a previous run")
	rootCmd.AddCommand(pushCmd)
}

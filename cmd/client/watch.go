package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := newWatchCmd()
	cmd.Flags().String("plan", "", "path to a JSON-encoded plan file ([]propagator.SyncItem)")
	cmd.Flags().Duration("interval", 30*time.Second, "time between propagation passes")
	cmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(cmd)
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run propagation passes on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			planPath, _ := cmd.Flags().GetString("plan")
			interval, _ := cmd.Flags().GetDuration("interval")
			return runWatch(cmd.Context(), cmd, planPath, interval)
		},
	}
}

// runWatch loops runSyncOnce on a fixed interval using a timer rather than a
// ticker, so a slow pass never leaves a queued tick to fire immediately
// after the previous one finishes.
func runWatch(ctx context.Context, cmd *cobra.Command, planPath string, interval time.Duration) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if err := runSyncOnce(ctx, cmd, planPath); err != nil {
				slog.Error("watch: propagation pass failed", "error", err)
			}
			timer.Reset(interval)
		}
	}
}

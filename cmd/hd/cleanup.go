package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maildesk/maildesk/internal/cleanup"
	"github.com/maildesk/maildesk/internal/display"
	"github.com/maildesk/maildesk/internal/tracker"
)

var (
	cleanupDryRun bool
	cleanupDays   int
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune attachments of long-closed conversations",
	Long: "Delete attachments/issue-N folders from the tracker repository for\n" +
		"conversations that have been closed longer than the retention window.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateTracker(); err != nil {
			return err
		}
		ctx := cmd.Context()

		days := cfg.CleanupDays
		if cmd.Flags().Changed("days") {
			days = cleanupDays
		}
		if days <= 0 {
			return fmt.Errorf("retention window must be positive, got %d days", days)
		}

		tc := tracker.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.Repository)
		p := &cleanup.Pruner{
			Tracker:    tc,
			QueueLabel: cfg.QueueLabel,
			MinAge:     time.Duration(days) * 24 * time.Hour,
			DryRun:     cleanupDryRun,
			Log:        log,
		}

		result, err := p.Run(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		if !quietFlag {
			verb := "deleted"
			if cleanupDryRun {
				verb = "would delete"
			}
			display.SuccessMsg("%s %d file(s) across %d folder(s), %d examined",
				verb, result.FilesDeleted, result.FoldersPruned, result.FoldersExamined)
		}
		return nil
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Report what would be deleted without deleting")
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "Retention window in days (overrides config)")
	rootCmd.AddCommand(cleanupCmd)
}

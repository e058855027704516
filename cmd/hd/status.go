package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maildesk/maildesk/internal/display"
	"github.com/maildesk/maildesk/internal/journal"
	"github.com/maildesk/maildesk/internal/tracker"
)

type statusOutput struct {
	OpenConversations   int              `json:"open_conversations"`
	ClosedConversations int              `json:"closed_conversations"`
	MirroredMessages    int              `json:"mirrored_messages,omitempty"`
	RecentRuns          []journal.RunRow `json:"recent_runs,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st"},
	Short:   "Show queue overview: conversation counts and recent runs",
	Long: `Show a quick snapshot of the helpdesk queue.

Conversation counts come from the tracker; mirrored-message totals and
recent run outcomes come from the local journal when one is configured.

Examples:
  hd status          # Full overview
  hd status --json   # Machine-readable output
  hd st              # Short alias`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateTracker(); err != nil {
			return err
		}
		ctx := cmd.Context()
		tc := tracker.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.Repository)

		open, err := tc.SearchIssues(ctx, fmt.Sprintf("label:%s is:open", cfg.QueueLabel))
		if err != nil {
			return err
		}
		closed, err := tc.SearchIssues(ctx, fmt.Sprintf("label:%s is:closed", cfg.QueueLabel))
		if err != nil {
			return err
		}

		out := statusOutput{
			OpenConversations:   len(open),
			ClosedConversations: len(closed),
		}
		if cfg.JournalPath != "" {
			jnl, err := journal.Open(cfg.JournalPath)
			if err != nil {
				return err
			}
			defer jnl.Close()
			out.MirroredMessages = jnl.ProcessedCount()
			out.RecentRuns, err = jnl.RecentRuns(5)
			if err != nil {
				log.Warn("reading run history failed", "error", err)
			}
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		display.Header("Maildesk Status")
		fmt.Println()
		fmt.Println("  Queue")
		fmt.Printf("    Open:   %3d conversations\n", out.OpenConversations)
		fmt.Printf("    Closed: %3d conversations\n", out.ClosedConversations)
		fmt.Println()

		if cfg.JournalPath != "" {
			fmt.Println("  Journal")
			fmt.Printf("    Mirrored: %d message(s)\n", out.MirroredMessages)
			for _, r := range out.RecentRuns {
				line := fmt.Sprintf("%-8s  %d processed, %d failed, %d skipped  %s",
					r.Direction, r.Processed, r.Failed, r.Skipped, r.FinishedAt)
				if r.Failed > 0 {
					fmt.Printf("    %s\n", display.ErrStyle.Render(line))
				} else {
					fmt.Printf("    %s\n", display.Muted.Render(line))
				}
			}
			fmt.Println()
		}

		fmt.Printf("  %s\n", display.Muted.Render("Use 'hd inbound' to poll mail, 'hd cleanup --dry-run' to preview pruning."))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

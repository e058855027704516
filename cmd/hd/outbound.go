package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maildesk/maildesk/internal/display"
	"github.com/maildesk/maildesk/internal/guard"
	"github.com/maildesk/maildesk/internal/mailer"
	"github.com/maildesk/maildesk/internal/syncer"
	"github.com/maildesk/maildesk/internal/tracker"
)

var eventPath string

var outboundCmd = &cobra.Command{
	Use:   "outbound",
	Short: "Send a gated issue comment to the customer as threaded email",
	Long: "Read an issue_comment event payload, apply the echo guard (queue\n" +
		"label, bot author, email-origin marker, self-mention), and mail the\n" +
		"comment to the conversation's customer with threading headers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateOutbound(); err != nil {
			return err
		}
		ctx := cmd.Context()

		path := eventPath
		if path == "" {
			path = os.Getenv("GITHUB_EVENT_PATH")
		}
		if path == "" {
			return fmt.Errorf("no event payload: pass --event or set GITHUB_EVENT_PATH")
		}

		ev, err := tracker.ReadCommentEvent(path)
		if err != nil {
			return err
		}

		tc := tracker.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.Repository)
		out := &syncer.Outbound{
			Tracker: tc,
			Mailer: mailer.New(mailer.Config{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.User,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			}, log),
			Gate: guard.Gate{
				QueueLabel: cfg.QueueLabel,
				BotLogin:   cfg.GitHub.BotLogin,
			},
			Domain: cfg.MessageIDDomain,
			Log:    log,
		}

		unit, err := out.Process(ctx, ev)
		if err != nil {
			return err
		}
		if !quietFlag {
			if unit.Skipped {
				fmt.Println("Comment skipped (not addressed to the customer)")
			} else {
				display.SuccessMsg("Comment on issue #%d mailed to customer", unit.Issue)
			}
		}
		return nil
	},
}

func init() {
	outboundCmd.Flags().StringVar(&eventPath, "event", "", "Path to the issue_comment event payload (default: $GITHUB_EVENT_PATH)")
	rootCmd.AddCommand(outboundCmd)
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maildesk/maildesk/internal/blob"
	"github.com/maildesk/maildesk/internal/display"
	"github.com/maildesk/maildesk/internal/journal"
	"github.com/maildesk/maildesk/internal/mailbox"
	"github.com/maildesk/maildesk/internal/resolve"
	"github.com/maildesk/maildesk/internal/syncer"
	"github.com/maildesk/maildesk/internal/tracker"
)

var inboundCmd = &cobra.Command{
	Use:   "inbound",
	Short: "Mirror unseen mailbox messages into GitHub issues",
	Long: "Fetch unseen mail over IMAP, correlate each message to an open\n" +
		"conversation (or open a new one), and mirror it as issue content.\n" +
		"Failed messages stay unseen and retry on the next run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateInbound(); err != nil {
			return err
		}
		ctx := cmd.Context()

		tc := tracker.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.Repository)

		store, err := blobStore(tc)
		if err != nil {
			return err
		}

		var jnl *journal.DB
		if cfg.JournalPath != "" {
			jnl, err = journal.Open(cfg.JournalPath)
			if err != nil {
				return err
			}
			defer jnl.Close()
		}

		session, err := mailbox.Connect(mailbox.Config{
			Host:     cfg.IMAP.Host,
			Port:     cfg.IMAP.Port,
			Username: cfg.IMAP.User,
			Password: cfg.IMAP.Password,
			Mailbox:  cfg.IMAP.Mailbox,
		}, log)
		if err != nil {
			return err
		}
		defer session.Close()

		in := &syncer.Inbound{
			Tracker: tc,
			Blobs:   store,
			Resolver: &resolve.Engine{
				Tracker:    tc,
				Prefix:     cfg.TicketPrefix,
				QueueLabel: cfg.QueueLabel,
				Log:        log,
			},
			Journal:    jnl,
			Prefix:     cfg.TicketPrefix,
			QueueLabel: cfg.QueueLabel,
			ProjectID:  cfg.GitHub.ProjectID,
			Log:        log,
			Quiet:      quietFlag,
		}

		summary, err := in.Run(ctx, session)
		if err != nil {
			return err
		}
		if jnl != nil {
			if err := jnl.RecordRun(summary); err != nil {
				log.Warn("journal write failed", "error", err)
			}
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
		} else if !quietFlag {
			display.RunSummary(summary)
		}

		// Fail at the end so earlier successes are kept; the failed
		// messages remain unseen for the next poll.
		if summary.Failed > 0 {
			return fmt.Errorf("%d message(s) could not be processed", summary.Failed)
		}
		return nil
	},
}

// blobStore picks the attachment backend from config.
func blobStore(tc *tracker.Client) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blob.NewS3Store(blob.S3Config{
			Endpoint:      cfg.S3.Endpoint,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			Bucket:        cfg.S3.Bucket,
			UseSSL:        cfg.S3.UseSSL,
			PublicBaseURL: cfg.S3.PublicBaseURL,
		})
	case "repo":
		return &blob.RepoStore{Tracker: tc}, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func init() {
	rootCmd.AddCommand(inboundCmd)
}

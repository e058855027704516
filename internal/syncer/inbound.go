// Package syncer orchestrates both synchronization directions: inbound mail
// becomes issue content, and gated issue comments become threaded email.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/emersion/go-imap/v2"

	"github.com/maildesk/maildesk/internal/blob"
	"github.com/maildesk/maildesk/internal/guard"
	"github.com/maildesk/maildesk/internal/journal"
	"github.com/maildesk/maildesk/internal/metadata"
	"github.com/maildesk/maildesk/internal/parse"
	"github.com/maildesk/maildesk/internal/resolve"
	"github.com/maildesk/maildesk/internal/tracker"
	"github.com/maildesk/maildesk/internal/types"
)

// TrackerService is the tracker surface the synchronizer drives.
type TrackerService interface {
	CreateIssue(ctx context.Context, title, body string, labels []string) (*tracker.Issue, error)
	GetIssue(ctx context.Context, number int) (*tracker.Issue, error)
	UpdateIssue(ctx context.Context, number int, upd tracker.IssueUpdate) (*tracker.Issue, error)
	AddComment(ctx context.Context, number int, body string) (*tracker.Comment, error)
	NextIssueNumber(ctx context.Context) (int, error)
	AddToProject(ctx context.Context, issueNodeID, projectID string) error
}

// MailboxSession is the mailbox surface the inbound batch consumes.
type MailboxSession interface {
	ListUnseen() ([]imap.UID, error)
	Fetch(uid imap.UID) (*types.InboundMessage, error)
	MarkSeen(uid imap.UID) error
}

// Inbound mirrors customer mail into the tracker.
type Inbound struct {
	Tracker  TrackerService
	Blobs    blob.Store
	Resolver *resolve.Engine
	Journal  *journal.DB // optional duplicate guard

	Prefix     string // ticket prefix, e.g. "GH"
	QueueLabel string // support-queue label, e.g. "helpdesk"
	ProjectID  string // optional Projects V2 node id

	Log   *slog.Logger
	Quiet bool
}

// Run processes one batch of unseen mail strictly sequentially. One unit's
// failure never aborts the batch; failed messages stay unseen and are
// retried on the next poll. The summary reports failures so the caller can
// exit non-zero at the end.
func (s *Inbound) Run(ctx context.Context, mbox MailboxSession) (*types.RunSummary, error) {
	uids, err := mbox.ListUnseen()
	if err != nil {
		return nil, fmt.Errorf("list unseen messages: %w", err)
	}

	summary := &types.RunSummary{Direction: "inbound"}
	if !s.Quiet {
		fmt.Printf("Processing %d unseen message(s)\n", len(uids))
	}

	for _, uid := range uids {
		unit := types.UnitResult{UID: uint32(uid)}

		msg, err := mbox.Fetch(uid)
		if err != nil {
			unit.Error = err.Error()
			summary.Add(unit)
			if !s.Quiet {
				fmt.Fprintf(os.Stderr, "  ! fetch UID %d: %v\n", uid, err)
			}
			continue
		}

		if s.Journal != nil && msg.MessageID != "" && s.Journal.Processed(msg.MessageID) {
			s.Log.Info("message already mirrored, marking seen", "uid", uid, "message_id", msg.MessageID)
			if err := mbox.MarkSeen(uid); err != nil {
				s.Log.Warn("mark seen failed", "uid", uid, "error", err)
			}
			unit.Skipped = true
			summary.Add(unit)
			continue
		}

		issue, created, err := s.Process(ctx, msg)
		if err != nil {
			unit.Error = err.Error()
			summary.Add(unit)
			if !s.Quiet {
				fmt.Fprintf(os.Stderr, "  ! UID %d (%s): %v\n", uid, msg.FromEmail, err)
			}
			continue
		}

		// Mark consumed only after the unit fully succeeded.
		if err := mbox.MarkSeen(uid); err != nil {
			s.Log.Warn("mark seen failed, message may be reprocessed", "uid", uid, "error", err)
		}
		if s.Journal != nil && msg.MessageID != "" {
			if err := s.Journal.MarkProcessed(msg.MessageID, uint32(uid), issue, created); err != nil {
				s.Log.Warn("journal write failed", "error", err)
			}
		}

		unit.Issue = issue
		unit.Created = created
		summary.Add(unit)
		if !s.Quiet {
			verb := "commented on"
			if created {
				verb = "created"
			}
			fmt.Printf("  ✓ %s issue #%d for %s\n", verb, issue, msg.FromEmail)
		}
	}

	return summary, nil
}

// Process mirrors a single inbound message: resolve the conversation, then
// either append a comment or open a new issue. Returns the issue number and
// whether it was created by this call.
func (s *Inbound) Process(ctx context.Context, msg *types.InboundMessage) (int, bool, error) {
	s.Log.Info("processing email", "from", msg.FromEmail, "subject", msg.Subject)

	number, found, err := s.Resolver.Resolve(ctx, msg)
	if err != nil {
		return 0, false, err
	}
	if found {
		if err := s.reply(ctx, msg, number); err != nil {
			return 0, false, err
		}
		return number, false, nil
	}

	created, err := s.create(ctx, msg)
	if err != nil {
		return 0, false, err
	}
	return created, true, nil
}

// reply appends the message to an existing conversation, reopening it when
// the tracker closed it in the meantime.
func (s *Inbound) reply(ctx context.Context, msg *types.InboundMessage, number int) error {
	issue, err := s.Tracker.GetIssue(ctx, number)
	if err != nil {
		return err
	}

	if issue.State == "closed" {
		s.Log.Info("reopening closed issue on customer reply", "issue", number)
		state := "open"
		if _, err := s.Tracker.UpdateIssue(ctx, number, tracker.IssueUpdate{State: &state}); err != nil {
			s.Log.Warn("reopen failed", "issue", number, "error", err)
		}
	}

	clean := sanitizeBody(msg.Content())
	attSection := s.attachmentSection(ctx, msg.Attachments, number)
	commentBody := guard.MarkEmailOrigin(composeBody(clean, attSection))

	if _, err := s.Tracker.AddComment(ctx, number, commentBody); err != nil {
		return err
	}

	// Best-effort metadata append; a lost race is a no-op, not a failure.
	s.appendToken(ctx, issue, msg.MessageID)
	return nil
}

// create opens a new conversation: predicted-number title, composed body
// with a fresh metadata block, queue and customer labels, then post-create
// reconciliation of the title and the optional project attachment.
func (s *Inbound) create(ctx context.Context, msg *types.InboundMessage) (int, error) {
	predicted, err := s.Tracker.NextIssueNumber(ctx)
	if err != nil {
		s.Log.Warn("could not predict next issue number", "error", err)
		predicted = 1
	}

	title := parse.FormatTitle(s.Prefix, predicted, msg.Subject)
	clean := sanitizeBody(msg.Content())
	attSection := s.attachmentSection(ctx, msg.Attachments, predicted)

	block := metadata.Block{
		ThreadID:   msg.MessageID,
		From:       msg.FromEmail,
		MessageIDs: []string{msg.MessageID},
	}
	fullBody := composeBody(clean, attSection, block.Encode())
	labels := []string{s.QueueLabel, "from:" + msg.FromEmail}

	issue, err := s.Tracker.CreateIssue(ctx, title, fullBody, labels)
	if err != nil {
		return 0, err
	}
	s.Log.Info("created issue", "issue", issue.Number, "title", title)

	if issue.Number != predicted {
		correct := parse.FormatTitle(s.Prefix, issue.Number, msg.Subject)
		if _, err := s.Tracker.UpdateIssue(ctx, issue.Number, tracker.IssueUpdate{Title: &correct}); err != nil {
			s.Log.Warn("title correction failed", "issue", issue.Number, "error", err)
		}
	}

	// Project attachment is the one post-create step that fails the unit:
	// an issue missing from the support board is invisible to the team.
	if s.ProjectID != "" && issue.NodeID != "" {
		if err := s.Tracker.AddToProject(ctx, issue.NodeID, s.ProjectID); err != nil {
			return 0, fmt.Errorf("issue #%d created but not added to project: %w", issue.Number, err)
		}
	}

	return issue.Number, nil
}

// appendToken adds a correlation token to the issue's embedded metadata and
// persists the new body. Every failure mode here is logged and swallowed.
func (s *Inbound) appendToken(ctx context.Context, issue *tracker.Issue, token string) {
	newBody, ok := metadata.AppendToken(issue.Body, token)
	if !ok {
		s.Log.Warn("metadata append skipped", "issue", issue.Number, "token", token)
		return
	}
	if newBody == issue.Body {
		return // token already present
	}
	if _, err := s.Tracker.UpdateIssue(ctx, issue.Number, tracker.IssueUpdate{Body: &newBody}); err != nil {
		s.Log.Warn("metadata update failed", "issue", issue.Number, "error", err)
	}
}

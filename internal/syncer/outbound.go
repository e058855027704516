package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maildesk/maildesk/internal/guard"
	"github.com/maildesk/maildesk/internal/mailer"
	"github.com/maildesk/maildesk/internal/metadata"
	"github.com/maildesk/maildesk/internal/parse"
	"github.com/maildesk/maildesk/internal/tracker"
	"github.com/maildesk/maildesk/internal/types"
)

// MailSender transmits one outbound message.
type MailSender interface {
	Send(m *mailer.Message) error
}

// Outbound re-emits gated issue comments as threaded email.
type Outbound struct {
	Tracker TrackerService
	Mailer  MailSender
	Gate    guard.Gate
	Domain  string // Message-ID domain for generated tokens

	Log *slog.Logger
}

// Process handles one issue_comment event. Gate rejections are normal skips
// (Skipped set, no error); missing metadata or a missing customer address is
// a hard failure; a send failure leaves the metadata untouched.
func (s *Outbound) Process(ctx context.Context, ev *tracker.CommentEvent) (types.UnitResult, error) {
	unit := types.UnitResult{Issue: ev.Issue.Number}

	if skip, reason := s.Gate.Check(ev); skip {
		s.Log.Info("skipping comment", "issue", ev.Issue.Number, "reason", reason)
		unit.Skipped = true
		return unit, nil
	}

	block, ok := metadata.Decode(ev.Issue.Body)
	if !ok {
		return unit, fmt.Errorf("issue #%d carries no metadata block", ev.Issue.Number)
	}
	if block.From == "" {
		return unit, fmt.Errorf("issue #%d metadata has no customer address", ev.Issue.Number)
	}
	if len(block.MessageIDs) == 0 {
		s.Log.Warn("no correlation tokens on record, reply will not thread", "issue", ev.Issue.Number)
	}

	token := parse.GenerateMessageID(s.Domain)
	msg := &mailer.Message{
		To:         block.From,
		Subject:    "Re: " + ev.Issue.Title,
		Body:       ev.Comment.Body,
		MessageID:  token,
		References: block.MessageIDs,
	}
	if len(block.MessageIDs) > 0 {
		msg.InReplyTo = block.MessageIDs[len(block.MessageIDs)-1]
	}

	if err := s.Mailer.Send(msg); err != nil {
		return unit, fmt.Errorf("send to %s: %w", block.From, err)
	}
	s.Log.Info("comment mailed to customer", "issue", ev.Issue.Number, "to", block.From)

	s.appendToken(ctx, &ev.Issue, token)
	return unit, nil
}

// appendToken records the freshly generated token in the issue metadata,
// best-effort.
func (s *Outbound) appendToken(ctx context.Context, issue *tracker.Issue, token string) {
	newBody, ok := metadata.AppendToken(issue.Body, token)
	if !ok {
		s.Log.Warn("metadata append skipped", "issue", issue.Number, "token", token)
		return
	}
	if newBody == issue.Body {
		return
	}
	if _, err := s.Tracker.UpdateIssue(ctx, issue.Number, tracker.IssueUpdate{Body: &newBody}); err != nil {
		s.Log.Warn("metadata update failed", "issue", issue.Number, "error", err)
	}
}

// Package guard decides which tracker activity may propagate to mail and
// marks mail-originated tracker content, so neither direction re-ingests its
// own output.
package guard

import (
	"strings"

	"github.com/maildesk/maildesk/internal/tracker"
)

// EmailOriginMarker is appended to every tracker comment created from mail.
// The outbound direction refuses to mail any comment carrying it.
const EmailOriginMarker = "<!-- source:email -->"

// MarkEmailOrigin appends the origin marker to a comment body.
func MarkEmailOrigin(body string) string {
	return body + "\n\n" + EmailOriginMarker
}

// IsEmailOrigin reports whether text was produced from an inbound email.
func IsEmailOrigin(text string) bool {
	return strings.Contains(text, EmailOriginMarker)
}

// Gate holds the outbound propagation policy.
type Gate struct {
	// QueueLabel is the label an issue must carry to participate in
	// synchronization at all.
	QueueLabel string
	// BotLogin is the synchronizer's own tracker identity. A comment is
	// mailed to the customer only when it mentions @BotLogin; everything
	// else is internal discussion.
	BotLogin string
}

// Check applies the gate to an issue_comment event. A true result means the
// comment must be skipped, with reason explaining why. Skips are normal
// control flow, never errors.
func (g Gate) Check(ev *tracker.CommentEvent) (skip bool, reason string) {
	if !ev.Issue.HasLabel(g.QueueLabel) {
		return true, "issue does not have '" + g.QueueLabel + "' label"
	}
	if ev.Comment.User.Type == "Bot" {
		return true, "comment author is a bot"
	}
	if IsEmailOrigin(ev.Comment.Body) {
		return true, "comment originated from email (has marker)"
	}
	if g.BotLogin != "" && !strings.Contains(ev.Comment.Body, "@"+g.BotLogin) {
		return true, "comment does not mention @" + g.BotLogin
	}
	return false, ""
}

// Package resolve decides which open conversation an inbound message belongs
// to.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/maildesk/maildesk/internal/metadata"
	"github.com/maildesk/maildesk/internal/parse"
	"github.com/maildesk/maildesk/internal/tracker"
	"github.com/maildesk/maildesk/internal/types"
)

// Searcher is the tracker slice the engine needs.
type Searcher interface {
	SearchIssues(ctx context.Context, query string) ([]tracker.Issue, error)
}

// Engine matches inbound mail to existing conversations. An explicit subject
// tag is authoritative and short-circuits everything else; otherwise open
// conversations are scanned for a threading-header token match. Closed
// conversations are reachable only through an explicit tag, never through
// silent token matching, so loosely-threaded mail clients cannot resurrect
// stale threads.
type Engine struct {
	Tracker    Searcher
	Prefix     string // ticket prefix, e.g. "GH"
	QueueLabel string // support-queue label, e.g. "helpdesk"
	Log        *slog.Logger
}

// Resolve returns the issue number for msg, or found=false when no existing
// conversation matches and a new one must be created.
func (e *Engine) Resolve(ctx context.Context, msg *types.InboundMessage) (number int, found bool, err error) {
	if n, ok := parse.ConversationTag(e.Prefix, msg.Subject); ok {
		e.Log.Info("resolved by subject tag", "issue", n, "subject", msg.Subject)
		return n, true, nil
	}

	issues, err := e.Tracker.SearchIssues(ctx, fmt.Sprintf("label:%s is:open", e.QueueLabel))
	if err != nil {
		return 0, false, fmt.Errorf("search open conversations: %w", err)
	}
	if len(issues) == 0 {
		return 0, false, nil
	}

	e.Log.Debug("scanning open conversations for thread match", "count", len(issues))

	for i := range issues {
		issue := &issues[i]
		block, ok := metadata.Decode(issue.Body)
		if !ok {
			continue
		}
		if msg.InReplyTo != "" && slices.Contains(block.MessageIDs, msg.InReplyTo) {
			e.Log.Info("resolved by In-Reply-To", "issue", issue.Number, "token", msg.InReplyTo)
			return issue.Number, true, nil
		}
		for _, ref := range msg.References {
			if slices.Contains(block.MessageIDs, ref) {
				e.Log.Info("resolved by References", "issue", issue.Number, "token", ref)
				return issue.Number, true, nil
			}
		}
	}

	e.Log.Debug("no thread match", "in_reply_to", msg.InReplyTo, "references", msg.References)
	return 0, false, nil
}

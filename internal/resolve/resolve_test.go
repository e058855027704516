package resolve

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maildesk/maildesk/internal/metadata"
	"github.com/maildesk/maildesk/internal/tracker"
	"github.com/maildesk/maildesk/internal/types"
)

type fakeSearcher struct {
	issues []tracker.Issue
	err    error
	query  string
}

func (f *fakeSearcher) SearchIssues(_ context.Context, query string) ([]tracker.Issue, error) {
	f.query = query
	return f.issues, f.err
}

func openIssue(number int, tokens ...string) tracker.Issue {
	block := metadata.Block{
		ThreadID:   "<thread@x>",
		From:       "jane@example.com",
		MessageIDs: tokens,
	}
	return tracker.Issue{
		Number: number,
		State:  "open",
		Body:   "Some customer text.\n\n" + block.Encode(),
		Labels: []tracker.Label{{Name: "helpdesk"}},
	}
}

func newEngine(s Searcher) *Engine {
	return &Engine{Tracker: s, Prefix: "GH", QueueLabel: "helpdesk", Log: slog.Default()}
}

func TestResolveBySubjectTag(t *testing.T) {
	// Token matching would pick issue 9, but the explicit tag wins and no
	// search even happens.
	s := &fakeSearcher{issues: []tracker.Issue{openIssue(9, "<one@x>")}}
	e := newEngine(s)

	msg := &types.InboundMessage{Subject: "Re: [GH-0007] Login issue", InReplyTo: "<one@x>"}
	n, found, err := e.Resolve(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 7, n)
	assert.Empty(t, s.query, "tag match must short-circuit the search")
}

func TestResolveByInReplyTo(t *testing.T) {
	s := &fakeSearcher{issues: []tracker.Issue{
		openIssue(3, "<other@x>"),
		openIssue(5, "<parent@x>"),
	}}
	e := newEngine(s)

	msg := &types.InboundMessage{Subject: "no tag here", InReplyTo: "<parent@x>"}
	n, found, err := e.Resolve(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 5, n)
	assert.Equal(t, "label:helpdesk is:open", s.query)
}

func TestResolveByReferences(t *testing.T) {
	s := &fakeSearcher{issues: []tracker.Issue{openIssue(8, "<root@x>", "<mid@x>")}}
	e := newEngine(s)

	msg := &types.InboundMessage{
		Subject:    "no tag",
		InReplyTo:  "<unknown@x>",
		References: []string{"<stale@x>", "<mid@x>"},
	}
	n, found, err := e.Resolve(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 8, n)
}

func TestResolveNoMatch(t *testing.T) {
	s := &fakeSearcher{issues: []tracker.Issue{openIssue(3, "<other@x>")}}
	e := newEngine(s)

	msg := &types.InboundMessage{Subject: "fresh topic", InReplyTo: "<nowhere@x>"}
	_, found, err := e.Resolve(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolveSkipsIssuesWithoutMetadata(t *testing.T) {
	s := &fakeSearcher{issues: []tracker.Issue{
		{Number: 2, Body: "no metadata block"},
		openIssue(4, "<parent@x>"),
	}}
	e := newEngine(s)

	msg := &types.InboundMessage{Subject: "x", InReplyTo: "<parent@x>"}
	n, found, err := e.Resolve(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 4, n)
}

func TestResolveSearchError(t *testing.T) {
	s := &fakeSearcher{err: errors.New("api down")}
	e := newEngine(s)

	_, _, err := e.Resolve(context.Background(), &types.InboundMessage{Subject: "x"})
	assert.Error(t, err)
}

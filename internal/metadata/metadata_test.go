package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := Block{
		ThreadID:   "<abc123@mail.example.com>",
		From:       "jane@example.com",
		MessageIDs: []string{"<abc123@mail.example.com>", "<def456@github-helpdesk>"},
	}
	body := "Customer wrote something.\n\n" + b.Encode() + "\n\ntrailing prose"

	got, ok := Decode(body)
	require.True(t, ok)
	assert.Equal(t, b, got)
}

func TestEncodeDeterministic(t *testing.T) {
	b := Block{ThreadID: "t", From: "a@b.c", MessageIDs: []string{"<x@y>"}}
	assert.Equal(t, b.Encode(), b.Encode())
}

func TestEncodeEmptyTokenList(t *testing.T) {
	b := Block{ThreadID: "t", From: "a@b.c"}
	assert.Contains(t, b.Encode(), "message_ids: []")
}

func TestDecodeAbsent(t *testing.T) {
	_, ok := Decode("just an ordinary issue body")
	assert.False(t, ok)
}

func TestDecodeMalformedTokenList(t *testing.T) {
	body := "<!-- HELPDESK_METADATA\nthread_id: t1\nfrom: a@b.c\nmessage_ids: [not json\n-->"
	b, ok := Decode(body)
	require.True(t, ok)
	assert.Equal(t, "t1", b.ThreadID)
	assert.Equal(t, "a@b.c", b.From)
	assert.Empty(t, b.MessageIDs)
}

func TestAppendToken(t *testing.T) {
	b := Block{ThreadID: "t", From: "a@b.c", MessageIDs: []string{"<one@x>"}}
	body := "prose before\n\n" + b.Encode()

	updated, ok := AppendToken(body, "<two@x>")
	require.True(t, ok)

	got, ok := Decode(updated)
	require.True(t, ok)
	assert.Equal(t, []string{"<one@x>", "<two@x>"}, got.MessageIDs)
	assert.True(t, strings.HasPrefix(updated, "prose before"), "surrounding prose must survive")
}

func TestAppendTokenIdempotent(t *testing.T) {
	b := Block{ThreadID: "t", From: "a@b.c", MessageIDs: []string{"<one@x>"}}
	body := b.Encode()

	updated, ok := AppendToken(body, "<one@x>")
	require.True(t, ok)
	assert.Equal(t, body, updated)
}

func TestAppendTokenNoBlock(t *testing.T) {
	body := "no metadata here"
	updated, ok := AppendToken(body, "<one@x>")
	assert.False(t, ok)
	assert.Equal(t, body, updated)
}

func TestCompareAndSwapLostRace(t *testing.T) {
	old := Block{ThreadID: "t", From: "a@b.c", MessageIDs: []string{"<one@x>"}}
	// The body was edited after we decoded it: the old serialization no
	// longer appears verbatim.
	body := "edited " + Block{ThreadID: "t", From: "a@b.c", MessageIDs: []string{"<one@x>", "<sneaky@x>"}}.Encode()

	updated := Block{ThreadID: "t", From: "a@b.c", MessageIDs: []string{"<one@x>", "<two@x>"}}
	got, ok := CompareAndSwap(body, old, updated)
	assert.False(t, ok)
	assert.Equal(t, body, got)
}

// Package metadata encodes and decodes the conversation state block embedded
// in an issue body.
//
// The issue body is the only persistent store for a conversation's identity:
// one reserved HTML-comment region plus free-form prose. The codec guarantees
// byte-identical output for identical input, because updates locate the old
// block by exact string match before replacing it (see CompareAndSwap).
package metadata

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

const (
	blockOpen  = "<!-- HELPDESK_METADATA"
	blockClose = "-->"
)

var (
	blockRe      = regexp.MustCompile(`(?s)<!-- HELPDESK_METADATA\s+(.*?)\s+-->`)
	threadIDRe   = regexp.MustCompile(`thread_id:\s*(.+)`)
	fromRe       = regexp.MustCompile(`from:\s*(.+)`)
	messageIDsRe = regexp.MustCompile(`(?s)message_ids:\s*(\[.*?\])`)
)

// Block is the decoded conversation metadata.
//
// ThreadID and From are immutable after first write; MessageIDs is
// append-only and never reorders.
type Block struct {
	ThreadID   string
	From       string
	MessageIDs []string
}

// Encode serializes the block. The output is deterministic: the same three
// fields always produce the same bytes.
func (b Block) Encode() string {
	ids, err := json.Marshal(b.MessageIDs)
	if err != nil || b.MessageIDs == nil {
		ids = []byte("[]")
	}
	return fmt.Sprintf("%s\nthread_id: %s\nfrom: %s\nmessage_ids: %s\n%s",
		blockOpen, b.ThreadID, b.From, ids, blockClose)
}

// Decode locates the metadata block inside body and parses it. The second
// return value is false when no block exists. A malformed message_ids list
// degrades to an empty list rather than failing the whole parse.
func Decode(body string) (Block, bool) {
	m := blockRe.FindStringSubmatch(body)
	if m == nil {
		return Block{}, false
	}
	inner := m[1]

	var b Block
	if tm := threadIDRe.FindStringSubmatch(inner); tm != nil {
		b.ThreadID = strings.TrimSpace(tm[1])
	}
	if fm := fromRe.FindStringSubmatch(inner); fm != nil {
		b.From = strings.TrimSpace(fm[1])
	}
	b.MessageIDs = []string{}
	if im := messageIDsRe.FindStringSubmatch(inner); im != nil {
		var ids []string
		if err := json.Unmarshal([]byte(im[1]), &ids); err == nil {
			b.MessageIDs = ids
		}
	}
	return b, true
}

// CompareAndSwap replaces the exact serialized form of old with the
// serialized form of updated inside body, leaving all other content
// untouched. It reports false when the old block can no longer be located
// verbatim, which happens when the body was edited concurrently; the caller
// treats that as a lost race, not corruption.
func CompareAndSwap(body string, old, updated Block) (string, bool) {
	oldText := old.Encode()
	if !strings.Contains(body, oldText) {
		return body, false
	}
	return strings.Replace(body, oldText, updated.Encode(), 1), true
}

// AppendToken returns body with messageID appended to the embedded block's
// token list. Appending an already-present token is a no-op that still
// reports success. The second return value is false when the body carries no
// block or the swap lost a race.
func AppendToken(body, messageID string) (string, bool) {
	old, ok := Decode(body)
	if !ok {
		return body, false
	}
	if slices.Contains(old.MessageIDs, messageID) {
		return body, true
	}
	updated := Block{
		ThreadID:   old.ThreadID,
		From:       old.From,
		MessageIDs: append(slices.Clone(old.MessageIDs), messageID),
	}
	return CompareAndSwap(body, old, updated)
}

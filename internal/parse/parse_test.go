package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe <jane@example.com>", "jane@example.com"},
		{"jane@example.com", "jane@example.com"},
		{"  jane@example.com  ", "jane@example.com"},
		{`"Doe, Jane" <jane@example.com>`, "jane@example.com"},
		{"not an address", "not an address"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Address(tt.in), "input %q", tt.in)
	}
}

func TestConversationTag(t *testing.T) {
	n, ok := ConversationTag("GH", "Re: [GH-0042] Login issue")
	require.True(t, ok)
	assert.Equal(t, 42, n)

	n, ok = ConversationTag("GH", "[GH-7] short tag")
	require.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = ConversationTag("GH", "Login issue")
	assert.False(t, ok)

	// Tag for a different prefix must not match.
	_, ok = ConversationTag("SUP", "Re: [GH-0042] Login issue")
	assert.False(t, ok)
}

func TestFormatTitle(t *testing.T) {
	tests := []struct {
		number  int
		subject string
		want    string
	}{
		{42, "Re: [GH-0042] Login issue", "[GH-0042] Login issue"},
		{42, "Login issue", "[GH-0042] Login issue"},
		{7, "RE: FW: Re: broken again", "[GH-0007] broken again"},
		{12345, "big one", "[GH-12345] big one"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTitle("GH", tt.number, tt.subject))
	}
}

func TestGenerateMessageIDShape(t *testing.T) {
	id := GenerateMessageID("github-helpdesk")
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@github-helpdesk>"))
}

func TestGenerateMessageIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := GenerateMessageID("example.org")
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s after %d iterations", id, i)
		seen[id] = struct{}{}
	}
}

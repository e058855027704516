package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maildesk/maildesk/internal/tracker"
)

func event(labels []string, userType, body string) *tracker.CommentEvent {
	issue := tracker.Issue{Number: 1, State: "open"}
	for _, l := range labels {
		issue.Labels = append(issue.Labels, tracker.Label{Name: l})
	}
	return &tracker.CommentEvent{
		Action: "created",
		Issue:  issue,
		Comment: tracker.Comment{
			Body: body,
			User: tracker.User{Login: "maintainer", Type: userType},
		},
	}
}

func TestMarkAndDetectEmailOrigin(t *testing.T) {
	body := MarkEmailOrigin("hello from a customer")
	assert.True(t, IsEmailOrigin(body))
	assert.False(t, IsEmailOrigin("plain maintainer reply"))
}

func TestGateCheck(t *testing.T) {
	g := Gate{QueueLabel: "helpdesk", BotLogin: "helpdesk-bot"}

	tests := []struct {
		name string
		ev   *tracker.CommentEvent
		skip bool
	}{
		{
			name: "passes all gates",
			ev:   event([]string{"helpdesk"}, "User", "On it! @helpdesk-bot"),
			skip: false,
		},
		{
			name: "missing queue label",
			ev:   event([]string{"bug"}, "User", "On it! @helpdesk-bot"),
			skip: true,
		},
		{
			name: "bot author",
			ev:   event([]string{"helpdesk"}, "Bot", "On it! @helpdesk-bot"),
			skip: true,
		},
		{
			name: "email-originated comment",
			ev:   event([]string{"helpdesk"}, "User", MarkEmailOrigin("customer text")+" @helpdesk-bot"),
			skip: true,
		},
		{
			name: "no self-mention",
			ev:   event([]string{"helpdesk"}, "User", "internal-only note"),
			skip: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, reason := g.Check(tt.ev)
			assert.Equal(t, tt.skip, skip)
			if skip {
				assert.NotEmpty(t, reason)
			} else {
				assert.Empty(t, reason)
			}
		})
	}
}

func TestGateEmptyBotLoginSendsUnconditionally(t *testing.T) {
	g := Gate{QueueLabel: "helpdesk"}
	skip, _ := g.Check(event([]string{"helpdesk"}, "User", "no mention at all"))
	assert.False(t, skip)
}

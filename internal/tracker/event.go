package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeError reports a webhook payload that parsed as JSON but is missing a
// field the bridge cannot work without.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("event payload: field %s: %s", e.Field, e.Reason)
}

// CommentEvent is the issue_comment webhook payload delivered by the CI
// trigger, reduced to the fields the outbound direction consumes.
type CommentEvent struct {
	Action  string  `json:"action"`
	Issue   Issue   `json:"issue"`
	Comment Comment `json:"comment"`
}

// DecodeCommentEvent parses and validates an issue_comment payload. Absent
// or malformed required fields surface as *DecodeError rather than zero
// values leaking into the pipeline.
func DecodeCommentEvent(r io.Reader) (*CommentEvent, error) {
	var ev CommentEvent
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return nil, fmt.Errorf("parse event payload: %w", err)
	}
	if ev.Issue.Number <= 0 {
		return nil, &DecodeError{Field: "issue.number", Reason: "missing or non-positive"}
	}
	if ev.Comment.Body == "" {
		return nil, &DecodeError{Field: "comment.body", Reason: "missing"}
	}
	if ev.Comment.User.Login == "" {
		return nil, &DecodeError{Field: "comment.user.login", Reason: "missing"}
	}
	return &ev, nil
}

// ReadCommentEvent loads an event payload from the file GitHub Actions
// points GITHUB_EVENT_PATH at.
func ReadCommentEvent(path string) (*CommentEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event payload: %w", err)
	}
	defer f.Close()
	return DecodeCommentEvent(f)
}

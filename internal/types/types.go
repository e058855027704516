// Package types defines core data structures for maildesk.
package types

// Attachment is one file carried by an inbound email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// InboundMessage is the normalized form of one fetched mail item.
// It is immutable once decoded: produced once per fetch, consumed once.
type InboundMessage struct {
	UID         uint32       `json:"uid"`
	MessageID   string       `json:"message_id"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`       // raw header, may carry a display name
	FromEmail   string       `json:"from_email"` // bare address
	To          string       `json:"to,omitempty"`
	Date        string       `json:"date,omitempty"`
	Body        string       `json:"body,omitempty"`
	HTMLBody    string       `json:"html_body,omitempty"`
	InReplyTo   string       `json:"in_reply_to,omitempty"`
	References  []string     `json:"references,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Content returns the plain body, falling back to the HTML body when the
// message carried no text part.
func (m *InboundMessage) Content() string {
	if m.Body != "" {
		return m.Body
	}
	return m.HTMLBody
}

// UnitResult records the outcome of processing one message or comment.
type UnitResult struct {
	UID     uint32 `json:"uid,omitempty"`
	Issue   int    `json:"issue,omitempty"`
	Created bool   `json:"created,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunSummary holds the result of one batch run.
type RunSummary struct {
	Direction string       `json:"direction"`
	Units     []UnitResult `json:"units,omitempty"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
}

// Add merges one unit outcome into the summary counters.
func (s *RunSummary) Add(u UnitResult) {
	s.Units = append(s.Units, u)
	switch {
	case u.Error != "":
		s.Failed++
	case u.Skipped:
		s.Skipped++
	default:
		s.Processed++
	}
}

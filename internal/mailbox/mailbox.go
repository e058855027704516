// Package mailbox fetches unseen mail over IMAP and normalizes it into
// InboundMessage values.
package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/maildesk/maildesk/internal/parse"
	"github.com/maildesk/maildesk/internal/types"
)

// Config identifies the mailbox to poll.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string // usually "INBOX"
}

// Session is one authenticated IMAP connection with the target mailbox
// selected. A batch run holds a single session for its whole lifetime.
type Session struct {
	client *imapclient.Client
	log    *slog.Logger
}

// Connect dials the server over TLS, authenticates, and selects the
// configured mailbox. The caller owns the session and must Close it.
func Connect(cfg Config, log *slog.Logger) (*Session, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", cfg.Username, err)
	}
	if _, err := client.Select(cfg.Mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", cfg.Mailbox, err)
	}

	log.Info("mailbox connected", "host", cfg.Host, "mailbox", cfg.Mailbox)
	return &Session{client: client, log: log}, nil
}

// ListUnseen returns the UIDs of all messages not yet marked seen, in the
// server's order.
func (s *Session) ListUnseen() ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}
	return data.AllUIDs(), nil
}

// Fetch downloads one message without setting \Seen and normalizes it.
func (s *Session) Fetch(uid imap.UID) (*types.InboundMessage, error) {
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := s.client.Fetch(imap.UIDSetNum(uid), fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}
	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message UID %d: %w", uid, err)
	}
	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message UID %d has no body section", uid)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching UID %d: %w", uid, err)
	}

	parsed, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding message UID %d: %w", uid, err)
	}
	parsed.UID = uint32(uid)
	return parsed, nil
}

// MarkSeen flags the message as read. Called only after the message was
// mirrored successfully, so failed units are retried on the next poll.
func (s *Session) MarkSeen(uid imap.UID) error {
	cmd := s.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("marking UID %d seen: %w", uid, err)
	}
	return nil
}

// Close logs out and drops the connection.
func (s *Session) Close() error {
	return s.client.Logout().Wait()
}

// Decode parses a raw RFC 5322 message into the normalized form: decoded
// subject, raw and bare sender address, threading headers verbatim, plain
// and HTML bodies, and attachment bytes.
func Decode(raw []byte) (*types.InboundMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	out := &types.InboundMessage{
		MessageID: strings.TrimSpace(h.Get("Message-Id")),
		From:      h.Get("From"),
		To:        h.Get("To"),
		Date:      h.Get("Date"),
		InReplyTo: strings.TrimSpace(h.Get("In-Reply-To")),
	}
	out.FromEmail = parse.Address(out.From)
	if subject, err := h.Subject(); err == nil {
		out.Subject = subject
	} else {
		out.Subject = h.Get("Subject")
	}
	if refs := h.Get("References"); refs != "" {
		out.References = strings.Fields(refs)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken part should not discard what was already decoded.
			break
		}

		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := ph.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				out.Body += string(body)
			case strings.HasPrefix(contentType, "text/html"):
				out.HTMLBody += string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := ph.Filename()
			if filename == "" {
				continue
			}
			contentType, _, _ := ph.ContentType()
			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			out.Attachments = append(out.Attachments, types.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int64(len(data)),
				Data:        data,
			})
		}
	}

	out.Body = strings.TrimSpace(out.Body)
	out.HTMLBody = strings.TrimSpace(out.HTMLBody)
	return out, nil
}

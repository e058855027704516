// Package mailer sends threaded reply emails over SMTP.
package mailer

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Config identifies the submission server and sender identity.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Message is one outbound reply. MessageID, InReplyTo, and References carry
// the correlation tokens that keep the customer's mail client threading the
// conversation.
type Message struct {
	To         string
	Subject    string
	Body       string
	MessageID  string
	InReplyTo  string
	References []string
}

// Mailer transmits messages via SMTP with STARTTLS and PLAIN auth.
type Mailer struct {
	cfg Config
	log *slog.Logger
}

// New returns a Mailer for the given submission server.
func New(cfg Config, log *slog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

// Build renders the RFC 5322 bytes for m using the configured sender.
func Build(from string, m *Message) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: m.To}})
	h.SetSubject(m.Subject)
	h.Set("Message-Id", m.MessageID)
	if m.InReplyTo != "" {
		h.Set("In-Reply-To", m.InReplyTo)
	}
	if len(m.References) > 0 {
		h.Set("References", strings.Join(m.References, " "))
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := io.WriteString(w, m.Body); err != nil {
		w.Close()
		return nil, fmt.Errorf("write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish message: %w", err)
	}
	return buf.Bytes(), nil
}

// Send builds and transmits one message. Transport retry policy lives in the
// layer invoking the batch, not here.
func (mr *Mailer) Send(m *Message) error {
	raw, err := Build(mr.cfg.From, m)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", mr.cfg.Host, mr.cfg.Port)
	c, err := smtp.DialStartTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("connect to SMTP %s: %w", addr, err)
	}
	defer c.Close()

	if err := c.Auth(sasl.NewPlainClient("", mr.cfg.Username, mr.cfg.Password)); err != nil {
		return fmt.Errorf("SMTP auth for %s: %w", mr.cfg.Username, err)
	}
	if err := c.Mail(mr.cfg.From, nil); err != nil {
		return fmt.Errorf("MAIL FROM %s: %w", mr.cfg.From, err)
	}
	if err := c.Rcpt(m.To, nil); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", m.To, err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		wc.Close()
		return fmt.Errorf("write message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finish message data: %w", err)
	}

	mr.log.Info("email sent", "to", m.To, "subject", m.Subject, "message_id", m.MessageID)
	return c.Quit()
}

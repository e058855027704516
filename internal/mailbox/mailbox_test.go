package mailbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "Message-Id: <abc@mail.example.com>\r\n" +
	"In-Reply-To: <parent@github-helpdesk>\r\n" +
	"References: <root@mail.example.com> <parent@github-helpdesk>\r\n" +
	"From: Jane Doe <jane@example.com>\r\n" +
	"To: support@example.org\r\n" +
	"Subject: Login issue\r\n" +
	"Date: Mon, 24 Aug 2026 10:00:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"I cannot log in since yesterday.\r\n"

func TestDecodePlain(t *testing.T) {
	msg, err := Decode([]byte(plainMessage))
	require.NoError(t, err)

	assert.Equal(t, "<abc@mail.example.com>", msg.MessageID)
	assert.Equal(t, "<parent@github-helpdesk>", msg.InReplyTo)
	assert.Equal(t, []string{"<root@mail.example.com>", "<parent@github-helpdesk>"}, msg.References)
	assert.Equal(t, "Jane Doe <jane@example.com>", msg.From)
	assert.Equal(t, "jane@example.com", msg.FromEmail)
	assert.Equal(t, "Login issue", msg.Subject)
	assert.Equal(t, "I cannot log in since yesterday.", msg.Body)
	assert.Empty(t, msg.Attachments)
}

const multipartMessage = "Message-Id: <multi@mail.example.com>\r\n" +
	"From: jane@example.com\r\n" +
	"Subject: screenshot attached\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=BOUNDARY\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"see attached\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>see attached</p>\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: image/png\r\n" +
	"Content-Disposition: attachment; filename=\"shot.png\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"iVBORw0KGgo=\r\n" +
	"--BOUNDARY--\r\n"

func TestDecodeMultipartWithAttachment(t *testing.T) {
	msg, err := Decode([]byte(multipartMessage))
	require.NoError(t, err)

	assert.Equal(t, "see attached", msg.Body)
	assert.Equal(t, "<p>see attached</p>", msg.HTMLBody)
	require.Len(t, msg.Attachments, 1)
	att := msg.Attachments[0]
	assert.Equal(t, "shot.png", att.Filename)
	assert.Equal(t, "image/png", att.ContentType)
	assert.Equal(t, att.Size, int64(len(att.Data)))
	assert.NotEmpty(t, att.Data)
}

func TestDecodeEncodedSubject(t *testing.T) {
	raw := strings.Replace(plainMessage,
		"Subject: Login issue",
		"Subject: =?utf-8?q?Probl=C3=A8me_de_connexion?=", 1)
	msg, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Problème de connexion", msg.Subject)
}

func TestContentFallsBackToHTML(t *testing.T) {
	msg, err := Decode([]byte(multipartMessage))
	require.NoError(t, err)
	msg.Body = ""
	assert.Equal(t, "<p>see attached</p>", msg.Content())
}

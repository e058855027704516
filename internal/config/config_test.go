package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.Equal(t, "INBOX", cfg.IMAP.Mailbox)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "GH", cfg.TicketPrefix)
	assert.Equal(t, "helpdesk", cfg.QueueLabel)
	assert.Equal(t, "github-helpdesk", cfg.MessageIDDomain)
	assert.Equal(t, "repo", cfg.BlobBackend)
	assert.Equal(t, 30, cfg.CleanupDays)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maildesk.toml")
	data := `
ticket_prefix = "SUP"
queue_label = "support"

[imap]
host = "imap.example.org"
user = "bridge@example.org"
password = "file-secret"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv("IMAP_PASSWORD", "env-secret")
	t.Setenv("TICKET_PREFIX", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "SUP", cfg.TicketPrefix)
	assert.Equal(t, "support", cfg.QueueLabel)
	assert.Equal(t, "imap.example.org", cfg.IMAP.Host)
	assert.Equal(t, "env-secret", cfg.IMAP.Password, "environment wins over file")
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	// Scrub anything inherited from the test environment.
	cfg.GitHub = GitHub{}
	cfg.IMAP.Host, cfg.IMAP.User, cfg.IMAP.Password = "", "", ""

	assert.ErrorContains(t, cfg.ValidateTracker(), "GITHUB_TOKEN")

	cfg.GitHub.Token = "tok"
	assert.ErrorContains(t, cfg.ValidateTracker(), "GITHUB_REPOSITORY")

	cfg.GitHub.Repository = "acme/support"
	require.NoError(t, cfg.ValidateTracker())

	assert.ErrorContains(t, cfg.ValidateInbound(), "IMAP_HOST")
	cfg.IMAP.Host, cfg.IMAP.User, cfg.IMAP.Password = "h", "u", "p"
	assert.NoError(t, cfg.ValidateInbound())
}

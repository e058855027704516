// Package config builds the single immutable configuration for a maildesk
// run. Values come from an optional TOML file overridden by environment
// variables; nothing else in the program reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// IMAP configures the mailbox being polled.
type IMAP struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Mailbox  string `toml:"mailbox"`
}

// SMTP configures the submission server for outbound replies.
type SMTP struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// GitHub configures the tracker repository.
type GitHub struct {
	Token      string `toml:"token"`
	Repository string `toml:"repository"` // "owner/repo"
	ProjectID  string `toml:"project_id"` // optional Projects V2 node id
	BotLogin   string `toml:"bot_login"`  // self-mention identity for outbound gating
}

// S3 configures the optional object-store blob backend.
type S3 struct {
	Endpoint      string `toml:"endpoint"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	Bucket        string `toml:"bucket"`
	UseSSL        bool   `toml:"use_ssl"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Config is the complete, immutable run configuration.
type Config struct {
	IMAP   IMAP   `toml:"imap"`
	SMTP   SMTP   `toml:"smtp"`
	GitHub GitHub `toml:"github"`
	S3     S3     `toml:"s3"`

	TicketPrefix    string `toml:"ticket_prefix"`     // tag prefix, default "GH"
	QueueLabel      string `toml:"queue_label"`       // default "helpdesk"
	MessageIDDomain string `toml:"message_id_domain"` // default "github-helpdesk"
	BlobBackend     string `toml:"blob_backend"`      // "repo" (default) or "s3"
	JournalPath     string `toml:"journal_path"`      // empty disables the journal
	CleanupDays     int    `toml:"cleanup_days"`      // default 30
}

// Load reads the TOML file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, fills defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.IMAP.Host = envOr("IMAP_HOST", c.IMAP.Host)
	c.IMAP.Port = envOrInt("IMAP_PORT", c.IMAP.Port)
	c.IMAP.User = envOr("IMAP_USER", c.IMAP.User)
	c.IMAP.Password = envOr("IMAP_PASSWORD", c.IMAP.Password)
	c.IMAP.Mailbox = envOr("IMAP_MAILBOX", c.IMAP.Mailbox)

	c.SMTP.Host = envOr("SMTP_HOST", c.SMTP.Host)
	c.SMTP.Port = envOrInt("SMTP_PORT", c.SMTP.Port)
	c.SMTP.User = envOr("SMTP_USER", c.SMTP.User)
	c.SMTP.Password = envOr("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.From = envOr("SMTP_FROM", c.SMTP.From)

	c.GitHub.Token = envOr("GITHUB_TOKEN", c.GitHub.Token)
	c.GitHub.Repository = envOr("GITHUB_REPOSITORY", c.GitHub.Repository)
	c.GitHub.ProjectID = envOr("PROJECT_ID", c.GitHub.ProjectID)
	c.GitHub.BotLogin = envOr("BOT_LOGIN", c.GitHub.BotLogin)

	c.TicketPrefix = envOr("TICKET_PREFIX", c.TicketPrefix)
	c.QueueLabel = envOr("QUEUE_LABEL", c.QueueLabel)
	c.MessageIDDomain = envOr("MESSAGE_ID_DOMAIN", c.MessageIDDomain)
	c.BlobBackend = envOr("BLOB_BACKEND", c.BlobBackend)
	c.JournalPath = envOr("JOURNAL_PATH", c.JournalPath)
	c.CleanupDays = envOrInt("CLEANUP_DAYS", c.CleanupDays)

	c.S3.Endpoint = envOr("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKey = envOr("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = envOr("S3_SECRET_KEY", c.S3.SecretKey)
	c.S3.Bucket = envOr("S3_BUCKET", c.S3.Bucket)
	c.S3.PublicBaseURL = envOr("S3_PUBLIC_BASE_URL", c.S3.PublicBaseURL)
}

func (c *Config) applyDefaults() {
	if c.IMAP.Port == 0 {
		c.IMAP.Port = 993
	}
	if c.IMAP.Mailbox == "" {
		c.IMAP.Mailbox = "INBOX"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.User
	}
	if c.TicketPrefix == "" {
		c.TicketPrefix = "GH"
	}
	if c.QueueLabel == "" {
		c.QueueLabel = "helpdesk"
	}
	if c.MessageIDDomain == "" {
		c.MessageIDDomain = "github-helpdesk"
	}
	if c.BlobBackend == "" {
		c.BlobBackend = "repo"
	}
	if c.CleanupDays == 0 {
		c.CleanupDays = 30
	}
}

// ValidateInbound checks the settings the inbound direction cannot run
// without.
func (c *Config) ValidateInbound() error {
	if err := c.ValidateTracker(); err != nil {
		return err
	}
	for _, f := range []struct{ name, value string }{
		{"IMAP_HOST", c.IMAP.Host},
		{"IMAP_USER", c.IMAP.User},
		{"IMAP_PASSWORD", c.IMAP.Password},
	} {
		if f.value == "" {
			return fmt.Errorf("%s is not set", f.name)
		}
	}
	return nil
}

// ValidateOutbound checks the settings the outbound direction cannot run
// without.
func (c *Config) ValidateOutbound() error {
	if err := c.ValidateTracker(); err != nil {
		return err
	}
	for _, f := range []struct{ name, value string }{
		{"SMTP_HOST", c.SMTP.Host},
		{"SMTP_USER", c.SMTP.User},
		{"SMTP_PASSWORD", c.SMTP.Password},
	} {
		if f.value == "" {
			return fmt.Errorf("%s is not set", f.name)
		}
	}
	return nil
}

// ValidateTracker checks the tracker credentials every command needs.
func (c *Config) ValidateTracker() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set")
	}
	if c.GitHub.Repository == "" {
		return fmt.Errorf("GITHUB_REPOSITORY is not set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

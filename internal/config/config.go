package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the top-level service configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Triage     TriageConfig
	Gmail      GmailConfig
	Mailbox    MailboxConfig
	Escalation EscalationConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string
	Port string
}

// Address returns the listen address
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// DatabaseConfig holds storage settings
type DatabaseConfig struct {
	Path string
}

// TriageConfig holds the acceptance policy settings
type TriageConfig struct {
	AcceptThreshold int
	Blocking        []string
}

// GmailConfig holds Gmail API credentials and limits
type GmailConfig struct {
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	AccessToken    string
	UserEmail      string
	MaxResults     int64
	RequestTimeout time.Duration
	RateLimitDelay time.Duration
}

// MailboxConfig holds on-demand mailbox fetch settings
type MailboxConfig struct {
	Enabled     bool
	AfterDays   int
	UnreadOnly  bool
	SearchQuery string
	UserID      string
}

// EscalationConfig holds external extractor settings
type EscalationConfig struct {
	Enabled        bool
	Endpoint       string
	Model          string
	APIKey         string
	Temperature    float64
	MaxBodyChars   int
	Timeout        time.Duration
	CheckInterval  time.Duration
	BatchSize      int
	RequestTimeout time.Duration
}

// validate checks configuration consistency
func (c *Config) validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Triage.AcceptThreshold < 0 || c.Triage.AcceptThreshold > 100 {
		return fmt.Errorf("accept threshold must be 0-100, got %d", c.Triage.AcceptThreshold)
	}
	if c.Mailbox.Enabled {
		if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" {
			return errors.New("gmail credentials are required when mailbox fetch is enabled")
		}
		if c.Mailbox.UserID == "" {
			return errors.New("mailbox user id is required when mailbox fetch is enabled")
		}
	}
	if c.Escalation.Enabled && c.Escalation.Endpoint == "" {
		return errors.New("escalation endpoint is required when escalation is enabled")
	}
	return nil
}

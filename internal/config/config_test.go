package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithViper(viper.New())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.Path != "./flipmail.db" {
		t.Errorf("unexpected default database path %s", cfg.Database.Path)
	}
	if cfg.Triage.AcceptThreshold != 70 {
		t.Errorf("expected default threshold 70, got %d", cfg.Triage.AcceptThreshold)
	}
	if len(cfg.Triage.Blocking) != 3 {
		t.Errorf("expected 3 default blocking anomalies, got %v", cfg.Triage.Blocking)
	}
	if cfg.Mailbox.Enabled || cfg.Escalation.Enabled {
		t.Error("mailbox fetch and escalation must default to disabled")
	}
	if cfg.Mailbox.AfterDays != 7 {
		t.Errorf("unexpected mailbox after_days %d", cfg.Mailbox.AfterDays)
	}
	if cfg.Escalation.Model != "deepseek-chat" {
		t.Errorf("unexpected default model %s", cfg.Escalation.Model)
	}
	if cfg.Escalation.BatchSize != 10 {
		t.Errorf("unexpected default batch size %d", cfg.Escalation.BatchSize)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FLIPMAIL_SERVER_PORT", "9090")
	t.Setenv("FLIPMAIL_ACCEPT_THRESHOLD", "85")
	t.Setenv("FLIPMAIL_ESCALATION_ENABLED", "true")
	t.Setenv("FLIPMAIL_ESCALATION_ENDPOINT", "http://localhost:11434")

	cfg, err := LoadWithViper(viper.New())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected env port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Triage.AcceptThreshold != 85 {
		t.Errorf("expected env threshold 85, got %d", cfg.Triage.AcceptThreshold)
	}
	if !cfg.Escalation.Enabled || cfg.Escalation.Endpoint != "http://localhost:11434" {
		t.Errorf("escalation env overrides lost: %+v", cfg.Escalation)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flipmail.yaml")
	content := `
server:
  port: "7070"
triage:
  accept_threshold: 60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected file port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Triage.AcceptThreshold != 60 {
		t.Errorf("expected file threshold 60, got %d", cfg.Triage.AcceptThreshold)
	}
	// Untouched keys keep their defaults
	if cfg.Database.Path != "./flipmail.db" {
		t.Errorf("unexpected database path %s", cfg.Database.Path)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Path: "./flipmail.db"},
			Triage:   TriageConfig{AcceptThreshold: 70},
		}
	}

	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Server.Port = "" }, true},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"threshold too high", func(c *Config) { c.Triage.AcceptThreshold = 101 }, true},
		{"negative threshold", func(c *Config) { c.Triage.AcceptThreshold = -1 }, true},
		{"mailbox without credentials", func(c *Config) { c.Mailbox.Enabled = true }, true},
		{"mailbox without user", func(c *Config) {
			c.Mailbox.Enabled = true
			c.Gmail.ClientID = "id"
			c.Gmail.ClientSecret = "secret"
		}, true},
		{"mailbox fully configured", func(c *Config) {
			c.Mailbox.Enabled = true
			c.Mailbox.UserID = "user-1"
			c.Gmail.ClientID = "id"
			c.Gmail.ClientSecret = "secret"
		}, false},
		{"escalation without endpoint", func(c *Config) { c.Escalation.Enabled = true }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: "8080"}
	if c.Address() != "127.0.0.1:8080" {
		t.Errorf("unexpected address %s", c.Address())
	}
	c.Host = ""
	if c.Address() != ":8080" {
		t.Errorf("unexpected address %s", c.Address())
	}
}

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration using a fresh Viper instance
func Load() (*Config, error) {
	return LoadWithViper(viper.New())
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	return LoadWithViper(v)
}

// LoadWithViper loads configuration using the given Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	setupEnvBinding(v)

	if err := loadConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := &Config{}
	if err := unmarshalConfig(v, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")

	v.SetDefault("database.path", "./flipmail.db")

	v.SetDefault("triage.accept_threshold", 70)
	v.SetDefault("triage.blocking", []string{
		"FORWARDED_EMAIL", "TYPE_WRONG", "TRACKING_MISMATCH",
	})

	v.SetDefault("gmail.max_results", 100)
	v.SetDefault("gmail.request_timeout", "30s")
	v.SetDefault("gmail.rate_limit_delay", "100ms")

	v.SetDefault("mailbox.enabled", false)
	v.SetDefault("mailbox.after_days", 7)
	v.SetDefault("mailbox.unread_only", false)
	v.SetDefault("mailbox.search_query", "")
	v.SetDefault("mailbox.user_id", "")

	v.SetDefault("escalation.enabled", false)
	v.SetDefault("escalation.endpoint", "")
	v.SetDefault("escalation.model", "deepseek-chat")
	v.SetDefault("escalation.temperature", 0.1)
	v.SetDefault("escalation.max_body_chars", 4000)
	v.SetDefault("escalation.timeout", "120s")
	v.SetDefault("escalation.check_interval", "1m")
	v.SetDefault("escalation.batch_size", 10)
	v.SetDefault("escalation.request_timeout", "120s")
}

// setupEnvBinding sets up environment variable binding
func setupEnvBinding(v *viper.Viper) {
	v.SetEnvPrefix("FLIPMAIL")
	v.AutomaticEnv()

	envBindings := map[string]string{
		"server.host": "SERVER_HOST",
		"server.port": "SERVER_PORT",

		"database.path": "DB_PATH",

		"triage.accept_threshold": "ACCEPT_THRESHOLD",
		"triage.blocking":         "BLOCKING_ANOMALIES",

		"gmail.client_id":        "GMAIL_CLIENT_ID",
		"gmail.client_secret":    "GMAIL_CLIENT_SECRET",
		"gmail.refresh_token":    "GMAIL_REFRESH_TOKEN",
		"gmail.access_token":     "GMAIL_ACCESS_TOKEN",
		"gmail.user_email":       "GMAIL_USER_EMAIL",
		"gmail.max_results":      "GMAIL_MAX_RESULTS",
		"gmail.request_timeout":  "GMAIL_REQUEST_TIMEOUT",
		"gmail.rate_limit_delay": "GMAIL_RATE_LIMIT_DELAY",

		"mailbox.enabled":      "MAILBOX_ENABLED",
		"mailbox.after_days":   "MAILBOX_AFTER_DAYS",
		"mailbox.unread_only":  "MAILBOX_UNREAD_ONLY",
		"mailbox.search_query": "MAILBOX_SEARCH_QUERY",
		"mailbox.user_id":      "MAILBOX_USER_ID",

		"escalation.enabled":         "ESCALATION_ENABLED",
		"escalation.endpoint":        "ESCALATION_ENDPOINT",
		"escalation.model":           "ESCALATION_MODEL",
		"escalation.api_key":         "ESCALATION_API_KEY",
		"escalation.temperature":     "ESCALATION_TEMPERATURE",
		"escalation.max_body_chars":  "ESCALATION_MAX_BODY_CHARS",
		"escalation.timeout":         "ESCALATION_TIMEOUT",
		"escalation.check_interval":  "ESCALATION_CHECK_INTERVAL",
		"escalation.batch_size":      "ESCALATION_BATCH_SIZE",
		"escalation.request_timeout": "ESCALATION_REQUEST_TIMEOUT",
	}

	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, "FLIPMAIL_"+envSuffix)
	}
}

// loadConfigFile loads the configuration file if one exists
func loadConfigFile(v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.flipmail")
		v.SetConfigName("flipmail")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	return nil
}

// unmarshalConfig copies Viper values into the Config struct
func unmarshalConfig(v *viper.Viper, config *Config) error {
	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetString("server.port")

	config.Database.Path = v.GetString("database.path")

	config.Triage.AcceptThreshold = v.GetInt("triage.accept_threshold")
	config.Triage.Blocking = v.GetStringSlice("triage.blocking")

	config.Gmail.ClientID = v.GetString("gmail.client_id")
	config.Gmail.ClientSecret = v.GetString("gmail.client_secret")
	config.Gmail.RefreshToken = v.GetString("gmail.refresh_token")
	config.Gmail.AccessToken = v.GetString("gmail.access_token")
	config.Gmail.UserEmail = v.GetString("gmail.user_email")
	config.Gmail.MaxResults = v.GetInt64("gmail.max_results")

	var err error
	config.Gmail.RequestTimeout, err = time.ParseDuration(v.GetString("gmail.request_timeout"))
	if err != nil {
		return fmt.Errorf("invalid gmail request timeout: %w", err)
	}
	config.Gmail.RateLimitDelay, err = time.ParseDuration(v.GetString("gmail.rate_limit_delay"))
	if err != nil {
		return fmt.Errorf("invalid gmail rate limit delay: %w", err)
	}

	config.Mailbox.Enabled = v.GetBool("mailbox.enabled")
	config.Mailbox.AfterDays = v.GetInt("mailbox.after_days")
	config.Mailbox.UnreadOnly = v.GetBool("mailbox.unread_only")
	config.Mailbox.SearchQuery = v.GetString("mailbox.search_query")
	config.Mailbox.UserID = v.GetString("mailbox.user_id")

	config.Escalation.Enabled = v.GetBool("escalation.enabled")
	config.Escalation.Endpoint = v.GetString("escalation.endpoint")
	config.Escalation.Model = v.GetString("escalation.model")
	config.Escalation.APIKey = v.GetString("escalation.api_key")
	config.Escalation.Temperature = v.GetFloat64("escalation.temperature")
	config.Escalation.MaxBodyChars = v.GetInt("escalation.max_body_chars")

	config.Escalation.Timeout, err = time.ParseDuration(v.GetString("escalation.timeout"))
	if err != nil {
		return fmt.Errorf("invalid escalation timeout: %w", err)
	}
	config.Escalation.CheckInterval, err = time.ParseDuration(v.GetString("escalation.check_interval"))
	if err != nil {
		return fmt.Errorf("invalid escalation check interval: %w", err)
	}
	config.Escalation.BatchSize = v.GetInt("escalation.batch_size")
	config.Escalation.RequestTimeout, err = time.ParseDuration(v.GetString("escalation.request_timeout"))
	if err != nil {
		return fmt.Errorf("invalid escalation request timeout: %w", err)
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeBackend()
	if err := c.normalizeSession(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizeBackend() {
	envOverride(&c.Backend.BaseURL, "SAASYWRAP_BACKEND_URL")
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendURL
	}
	if c.Backend.RetryAttempts <= 0 {
		c.Backend.RetryAttempts = defaultBackendRetryAttempts
	}
}

func (c *Config) normalizeSession() error {
	var err error
	if strings.TrimSpace(c.Session.StateDir) == "" {
		c.Session.StateDir = defaultStateDir
	}
	if c.Session.StateDir, err = expandPath(c.Session.StateDir); err != nil {
		return fmt.Errorf("session.state_dir: %w", err)
	}
	c.Session.Name = strings.TrimSpace(c.Session.Name)
	if c.Session.Name == "" {
		c.Session.Name = defaultSessionName
	}
	envOverride(&c.Session.UserID, "SAASYWRAP_USER_ID")
	c.Session.UserID = strings.TrimSpace(c.Session.UserID)
	if c.Session.UserID == "" {
		c.Session.UserID = defaultUserID
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	envOverride(&c.Notifications.NtfyTopic, "SAASYWRAP_NTFY_TOPIC")
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

// envOverride replaces *field with the named environment variable when it is
// set and non-blank. Environment values win over the config file.
func envOverride(field *string, name string) {
	if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
		*field = strings.TrimSpace(value)
	}
}

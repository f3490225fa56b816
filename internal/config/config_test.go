package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"saasywrap/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SAASYWRAP_BACKEND_URL", "")
	t.Setenv("SAASYWRAP_USER_ID", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "saasywrap")
	if cfg.Session.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Session.StateDir, wantState)
	}
	if cfg.Logging.Dir != filepath.Join(wantState, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Logging.Dir)
	}
	if cfg.Backend.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected backend url: %q", cfg.Backend.BaseURL)
	}
	if cfg.BackendTimeout() != 0 {
		t.Fatalf("expected no backend timeout by default, got %s", cfg.BackendTimeout())
	}
	if cfg.Backend.RetryAttempts != 1 {
		t.Fatalf("expected single attempt by default, got %d", cfg.Backend.RetryAttempts)
	}
	if cfg.Session.UserID != "default-user" {
		t.Fatalf("unexpected user id: %q", cfg.Session.UserID)
	}
	if cfg.SessionDBPath() != filepath.Join(wantState, "sessions.db") {
		t.Fatalf("unexpected session db path: %q", cfg.SessionDBPath())
	}
}

func TestLoadEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SAASYWRAP_BACKEND_URL", "https://wizard.example.com/")
	t.Setenv("SAASYWRAP_USER_ID", "alex")
	t.Setenv("SAASYWRAP_NTFY_TOPIC", "https://ntfy.sh/wizard")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://wizard.example.com" {
		t.Fatalf("expected env backend url without trailing slash, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Session.UserID != "alex" {
		t.Fatalf("expected env user id, got %q", cfg.Session.UserID)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/wizard" {
		t.Fatalf("expected env ntfy topic, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SAASYWRAP_BACKEND_URL", "http://override:9000")
	t.Setenv("SAASYWRAP_USER_ID", "jordan")
	t.Setenv("SAASYWRAP_NTFY_TOPIC", "https://ntfy.sh/override")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	data, err := toml.Marshal(map[string]any{
		"backend":       map[string]any{"base_url": "http://file:5000"},
		"session":       map[string]any{"user_id": "default-user"},
		"notifications": map[string]any{"ntfy_topic": "https://ntfy.sh/file"},
	})
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://override:9000" {
		t.Fatalf("backend url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Session.UserID != "jordan" {
		t.Fatalf("user id = %q", cfg.Session.UserID)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/override" {
		t.Fatalf("ntfy topic = %q", cfg.Notifications.NtfyTopic)
	}

	t.Setenv("SAASYWRAP_USER_ID", "  ")
	cfg, _, _, err = config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Session.UserID != "default-user" {
		t.Fatalf("blank env should keep file value, got %q", cfg.Session.UserID)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SAASYWRAP_BACKEND_URL", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"backend": map[string]any{
			"base_url":        "http://10.0.0.5:8080",
			"timeout_seconds": 45,
			"retry_attempts":  3,
		},
		"session": map[string]any{
			"state_dir": "~/wizard",
			"name":      "shop-app",
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.BackendTimeout() != 45*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.BackendTimeout())
	}
	if cfg.Backend.RetryAttempts != 3 {
		t.Fatalf("unexpected retry attempts: %d", cfg.Backend.RetryAttempts)
	}
	if cfg.Session.StateDir != filepath.Join(tempHome, "wizard") {
		t.Fatalf("unexpected state dir: %q", cfg.Session.StateDir)
	}
	if cfg.Session.Name != "shop-app" {
		t.Fatalf("unexpected session name: %q", cfg.Session.Name)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging settings, got %+v", cfg.Logging)
	}
	if got := cfg.SessionLockPath("shop-app"); got != filepath.Join(tempHome, "wizard", "locks", "shop-app.lock") {
		t.Fatalf("unexpected lock path: %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"scheme", func(c *config.Config) { c.Backend.BaseURL = "ftp://host" }, "http or https"},
		{"host", func(c *config.Config) { c.Backend.BaseURL = "http://" }, "include a host"},
		{"timeout", func(c *config.Config) { c.Backend.TimeoutSeconds = -1 }, "timeout_seconds"},
		{"retries", func(c *config.Config) { c.Backend.RetryAttempts = 99 }, "retry_attempts"},
		{"session", func(c *config.Config) { c.Session.Name = "../escape" }, "session.name"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"ntfy", func(c *config.Config) { c.Notifications.NtfyTopic = "topic-only" }, "ntfy_topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Session.StateDir = t.TempDir()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SAASYWRAP_BACKEND_URL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if !cfg.Notifications.Batch || !cfg.Notifications.Errors {
		t.Fatalf("expected sample notifications enabled, got %+v", cfg.Notifications)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Session.StateDir = filepath.Join(base, "state")
	cfg.Logging.Dir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Session.StateDir, cfg.Logging.Dir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

package testsupport

import (
	"path/filepath"
	"testing"

	"saasywrap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Session.StateDir = filepath.Join(base, "state")
	cfgVal.Session.Name = "test"
	cfgVal.Session.UserID = "tester"
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Backend.BaseURL = "http://127.0.0.1:1"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackendURL points the config at a (usually fake) backend.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = url
	}
}

// WithSessionName overrides the session name.
func WithSessionName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.Name = name
	}
}

// WithNtfyTopic enables notifications against the given endpoint.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Session.StateDir)
}

// Package testsupport provides shared helpers for wiring components in tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"snag/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.FallbackDir = filepath.Join(base, "fallback")
	cfg.Paths.LogDir = filepath.Join(base, "state", "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWebhook sets the Discord webhook URL on the test config.
func WithWebhook(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Discord.WebhookURL = url
	}
}

// WithPreviewDisabled turns off preview generation on the test config.
func WithPreviewDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Preview.Enabled = false
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snag/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Queue.MaxPerRun != 5 {
		t.Fatalf("MaxPerRun = %d, want default 5", cfg.Queue.MaxPerRun)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
state_dir = "` + filepath.Join(dir, "state") + `"

[queue]
max_per_run = 2

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Queue.MaxPerRun != 2 {
		t.Fatalf("MaxPerRun = %d, want 2", cfg.Queue.MaxPerRun)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("Format = %q, want normalized json", cfg.Logging.Format)
	}
	if cfg.Paths.LogDir != filepath.Join(dir, "state", "logs") {
		t.Fatalf("LogDir = %q, want under state dir", cfg.Paths.LogDir)
	}
	if !strings.HasPrefix(cfg.IncomingDir(), cfg.Paths.StateDir) {
		t.Fatalf("IncomingDir %q not under state dir", cfg.IncomingDir())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[queue]
max_per_run = 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for max_per_run=0")
	}
}

func TestWebhookEnvFallback(t *testing.T) {
	t.Setenv("SNAG_DISCORD_WEBHOOK_URL", "https://discord.test/hook")
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.WebhookURL != "https://discord.test/hook" {
		t.Fatalf("WebhookURL = %q, want env fallback", cfg.Discord.WebhookURL)
	}
}

func TestEnsureDirectoriesCreatesQueueTree(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.FallbackDir = filepath.Join(base, "fallback")
	cfg.Paths.LogDir = filepath.Join(base, "state", "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.IncomingDir(), cfg.ProcessingDir(), cfg.DoneDir(), cfg.ErrorDir(), cfg.StagingRoot()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory roots snag operates on.
type Paths struct {
	// StateDir holds the queue directories, staging area, logs, history
	// database, and download archive. Always local.
	StateDir string `toml:"state_dir"`
	// DownloadDir is the durable destination for finished downloads. May be
	// a network mount; snag never downloads into it directly.
	DownloadDir string `toml:"download_dir"`
	// FallbackDir receives downloads when DownloadDir is unreachable.
	FallbackDir string `toml:"fallback_dir"`
	// LogDir defaults to <state_dir>/logs when empty.
	LogDir string `toml:"log_dir"`
}

// Queue contains scan and claim behaviour for the descriptor queue.
type Queue struct {
	MaxPerRun int `toml:"max_per_run"`
	// ReapAfterMinutes is the age cutoff used by `snag queue reap`. It never
	// runs automatically.
	ReapAfterMinutes int `toml:"reap_after_minutes"`
}

// Download contains settings for the yt-dlp invocation.
type Download struct {
	TimeoutSeconds int  `toml:"timeout"`
	ArchiveEnabled bool `toml:"archive_enabled"`
}

// Preview contains settings for GIF preview rendering.
type Preview struct {
	Enabled        bool    `toml:"enabled"`
	Seconds        float64 `toml:"seconds"`
	FPS            int     `toml:"fps"`
	Width          int     `toml:"width"`
	MaxBytes       int64   `toml:"max_bytes"`
	TimeoutSeconds int     `toml:"timeout"`
}

// Discord contains the webhook notification settings.
type Discord struct {
	WebhookURL     string `toml:"webhook_url"`
	Username       string `toml:"username"`
	AvatarURL      string `toml:"avatar_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Tools contains optional explicit paths to external binaries. Empty values
// auto-resolve via PATH; SNAG_YTDLP/SNAG_FFMPEG/SNAG_FFPROBE take precedence
// over both.
type Tools struct {
	YtDlp   string `toml:"ytdlp"`
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// History contains settings for the SQLite outcome ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Watch contains settings for the long-running watch mode.
type Watch struct {
	// PollIntervalSeconds is the fallback tick for processing the queue when
	// no filesystem event arrives.
	PollIntervalSeconds int `toml:"poll_interval"`
}

// Staging contains scratch-space housekeeping settings.
type Staging struct {
	CleanAfterHours int `toml:"clean_after_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for snag.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Queue    Queue    `toml:"queue"`
	Download Download `toml:"download"`
	Preview  Preview  `toml:"preview"`
	Discord  Discord  `toml:"discord"`
	Tools    Tools    `toml:"tools"`
	History  History  `toml:"history"`
	Watch    Watch    `toml:"watch"`
	Staging  Staging  `toml:"staging"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/snag/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. When no config file exists the
// defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("SNAG_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// Queue directories live under the state root; their layout is the job
// lifecycle contract: a descriptor exists in exactly one of them at a time.

// IncomingDir returns the directory scanned for pending job descriptors.
func (c *Config) IncomingDir() string { return filepath.Join(c.Paths.StateDir, "incoming") }

// ProcessingDir returns the directory holding claimed descriptors.
func (c *Config) ProcessingDir() string { return filepath.Join(c.Paths.StateDir, "processing") }

// DoneDir returns the terminal directory for successful jobs.
func (c *Config) DoneDir() string { return filepath.Join(c.Paths.StateDir, "done") }

// ErrorDir returns the terminal directory for failed jobs.
func (c *Config) ErrorDir() string { return filepath.Join(c.Paths.StateDir, "error") }

// StagingRoot returns the local scratch root for in-flight downloads.
func (c *Config) StagingRoot() string { return filepath.Join(c.Paths.StateDir, "staging") }

// ArchivePath returns the yt-dlp download archive file.
func (c *Config) ArchivePath() string { return filepath.Join(c.Paths.StateDir, "ytdlp-archive.txt") }

// HistoryPath returns the SQLite history database file.
func (c *Config) HistoryPath() string { return filepath.Join(c.Paths.StateDir, "history.db") }

// LockPath returns the watch-mode instance lock file.
func (c *Config) LockPath() string { return filepath.Join(c.Paths.StateDir, "snag.lock") }

// EnsureDirectories creates the local state tree. The download root may be a
// network share, so it is created best-effort only.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.StateDir,
		c.IncomingDir(),
		c.ProcessingDir(),
		c.DoneDir(),
		c.ErrorDir(),
		c.StagingRoot(),
		c.Paths.LogDir,
		c.Paths.FallbackDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.DownloadDir) != "" {
		// Best-effort to avoid failing startup when storage is offline.
		_ = os.MkdirAll(c.Paths.DownloadDir, 0o755)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	pathValue = os.ExpandEnv(pathValue)
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

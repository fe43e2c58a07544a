// Package toolpath resolves the external binaries snag shells out to.
//
// Resolution order for each tool: environment override, configured path, PATH
// lookup. A missing tool fails the job that needed it, never the engine loop,
// so resolution happens lazily at the call site. The package also produces the
// availability report behind `snag deps`.
package toolpath

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"snag/internal/config"
)

// ErrNotFound indicates a tool could not be resolved by any strategy.
var ErrNotFound = errors.New("tool not found")

// Resolve locates an executable. An env override or configured path that
// points at a missing file is an error rather than a silent PATH fallback, so
// misconfiguration surfaces instead of masking itself.
func Resolve(name, envVar, configValue string) (string, error) {
	if envVar != "" {
		if override := strings.TrimSpace(os.Getenv(envVar)); override != "" {
			path := expand(override)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
			return "", fmt.Errorf("%w: %s path from %s does not exist: %s", ErrNotFound, name, envVar, path)
		}
	}

	if configValue = strings.TrimSpace(configValue); configValue != "" {
		path := expand(configValue)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("%w: configured %s path does not exist: %s", ErrNotFound, name, path)
	}

	if found, err := exec.LookPath(name); err == nil {
		return found, nil
	}
	hint := ""
	if envVar != "" {
		hint = fmt.Sprintf(" (set %s or [tools] in config)", envVar)
	}
	return "", fmt.Errorf("%w: %s not on PATH%s", ErrNotFound, name, hint)
}

func expand(path string) string {
	path = os.ExpandEnv(path)
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if path == "~" {
				path = home
			} else if len(path) > 1 && (path[1] == '/' || path[1] == '\\') {
				path = filepath.Join(home, path[2:])
			}
		}
	}
	return filepath.Clean(path)
}

// Resolver binds tool resolution to a loaded config.
type Resolver struct {
	cfg *config.Config
}

// NewResolver constructs a Resolver for the given config.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// YtDlp resolves the yt-dlp binary.
func (r *Resolver) YtDlp() (string, error) {
	return Resolve("yt-dlp", "SNAG_YTDLP", r.cfg.Tools.YtDlp)
}

// FFmpeg resolves the ffmpeg binary.
func (r *Resolver) FFmpeg() (string, error) {
	return Resolve("ffmpeg", "SNAG_FFMPEG", r.cfg.Tools.FFmpeg)
}

// FFprobe resolves the ffprobe binary.
func (r *Resolver) FFprobe() (string, error) {
	return Resolve("ffprobe", "SNAG_FFPROBE", r.cfg.Tools.FFprobe)
}

// Status reports the availability of an external dependency.
type Status struct {
	Name      string
	Path      string
	Optional  bool
	Available bool
	Detail    string
}

// Check evaluates every tool snag can use and reports availability. ffmpeg and
// ffprobe are optional when previews are disabled.
func (r *Resolver) Check() []Status {
	previewsOn := r.cfg.Preview.Enabled
	checks := []struct {
		name     string
		optional bool
		resolve  func() (string, error)
	}{
		{"yt-dlp", false, r.YtDlp},
		{"ffmpeg", !previewsOn, r.FFmpeg},
		{"ffprobe", !previewsOn, r.FFprobe},
	}

	results := make([]Status, 0, len(checks))
	for _, check := range checks {
		status := Status{Name: check.name, Optional: check.optional}
		path, err := check.resolve()
		if err != nil {
			status.Detail = err.Error()
		} else {
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

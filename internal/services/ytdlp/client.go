package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"snag/internal/services"
)

// Metadata captures the subset of yt-dlp's JSON dump snag cares about.
type Metadata struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	WebpageURL string  `json:"webpage_url"`
	Duration   float64 `json:"duration"`
	Thumbnail  string  `json:"thumbnail"`
}

// BestChannel returns the channel name, falling back to the uploader.
func (m Metadata) BestChannel() string {
	if strings.TrimSpace(m.Channel) != "" {
		return m.Channel
	}
	return m.Uploader
}

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom command runner (primarily for tests).
func WithRunner(runner services.Runner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// WithFFmpegLocation points yt-dlp at an explicit ffmpeg binary.
func WithFFmpegLocation(path string) Option {
	return func(c *Client) { c.ffmpegPath = strings.TrimSpace(path) }
}

// WithArchive enables yt-dlp's download archive at the given path.
func WithArchive(path string) Option {
	return func(c *Client) { c.archivePath = strings.TrimSpace(path) }
}

// WithTimeout bounds each yt-dlp invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary      string
	ffmpegPath  string
	archivePath string
	timeout     time.Duration
	runner      services.Runner
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{binary: binary, runner: services.NewRunner()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Metadata fetches the media metadata without downloading.
func (c *Client) Metadata(ctx context.Context, url string) (Metadata, error) {
	result, err := c.runner.Run(ctx, c.binary, []string{"-J", "--no-playlist", url}, c.timeout)
	if err != nil {
		return Metadata{}, fmt.Errorf("yt-dlp metadata: %w\n%s", err, result.Diagnostic())
	}
	var meta Metadata
	if err := json.Unmarshal([]byte(result.Stdout), &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	if meta.WebpageURL == "" {
		meta.WebpageURL = url
	}
	return meta, nil
}

// ArchiveKey returns the "<extractor> <id>" line yt-dlp would record in its
// download archive for url. The extractor is lowercased to match archive
// entries; the id stays case-sensitive.
func (c *Client) ArchiveKey(ctx context.Context, url string) (string, error) {
	args := []string{"-s", "--no-playlist", "--print", "%(extractor_key)s %(id)s", url}
	result, err := c.runner.Run(ctx, c.binary, args, c.timeout)
	if err != nil {
		return "", fmt.Errorf("yt-dlp archive key: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(result.Stdout), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return "", errors.New("yt-dlp printed no archive key")
	}
	parts := strings.SplitN(strings.TrimSpace(lines[0]), " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("unexpected archive key output: %q", lines[0])
	}
	return strings.ToLower(parts[0]) + " " + parts[1], nil
}

// Download fetches url into destDir and returns the path of the media file.
// Output is located from yt-dlp's printed after-move filepath, with a
// directory scan as fallback. A downloaded thumbnail sidecar is renamed to
// <stem>-poster.jpg.
func (c *Client) Download(ctx context.Context, url, destDir string) (string, error) {
	if strings.TrimSpace(destDir) == "" {
		return "", errors.New("destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	args := []string{
		"--no-playlist",
		"--continue",
		"--write-thumbnail",
		"--convert-thumbnails", "jpg",
		"--windows-filenames",
		// Keep stdout predictable: only the printed filepath.
		"-q",
		"--no-warnings",
		"--print", "after_move:filepath",
	}
	if c.archivePath != "" {
		args = append(args, "--download-archive", c.archivePath)
	}
	if c.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", c.ffmpegPath)
	}
	args = append(args, "-o", filepath.Join(destDir, "%(title)s.%(ext)s"), url)

	result, err := c.runner.Run(ctx, c.binary, args, c.timeout)
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w\n%s", err, result.Diagnostic())
	}

	if path := locatePrinted(result.Stdout, destDir); path != "" {
		renameThumbnail(path)
		return path, nil
	}
	if path := scanNewest(destDir); path != "" {
		renameThumbnail(path)
		return path, nil
	}
	return "", fmt.Errorf("yt-dlp succeeded but no output file found\n%s", result.Diagnostic())
}

func locatePrinted(stdout, destDir string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		path := line
		if !filepath.IsAbs(path) {
			path = filepath.Join(destDir, path)
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sidecarExts = map[string]struct{}{
	".jpg": {}, ".webp": {}, ".json": {}, ".part": {}, ".tmp": {},
}

func scanNewest(destDir string) string {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return ""
	}
	var best string
	var bestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, sidecar := sidecarExts[strings.ToLower(filepath.Ext(entry.Name()))]; sidecar {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(destDir, entry.Name())
			bestTime = info.ModTime()
		}
	}
	return best
}

// renameThumbnail gives the .jpg sidecar a -poster suffix so media servers
// pick it up as artwork.
func renameThumbnail(mediaPath string) {
	ext := filepath.Ext(mediaPath)
	thumb := strings.TrimSuffix(mediaPath, ext) + ".jpg"
	if _, err := os.Stat(thumb); err != nil {
		return
	}
	poster := strings.TrimSuffix(thumb, ".jpg") + "-poster.jpg"
	_ = os.Rename(thumb, poster)
}

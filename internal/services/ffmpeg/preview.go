package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"snag/internal/services"
)

// GIFOptions controls preview rendering.
type GIFOptions struct {
	Seconds  float64
	FPS      int
	Width    int
	MaxBytes int64
}

// Option configures the generator.
type Option func(*Generator)

// WithRunner injects a custom command runner (primarily for tests).
func WithRunner(runner services.Runner) Option {
	return func(g *Generator) {
		if runner != nil {
			g.runner = runner
		}
	}
}

// WithTimeout bounds each ffmpeg/ffprobe invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Generator) { g.timeout = timeout }
}

// Generator renders GIF previews from staged media files.
type Generator struct {
	ffmpeg  string
	ffprobe string
	runner  services.Runner
	timeout time.Duration
}

// New constructs a preview generator.
func New(ffmpegBinary, ffprobeBinary string, opts ...Option) (*Generator, error) {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	ffprobeBinary = strings.TrimSpace(ffprobeBinary)
	if ffmpegBinary == "" || ffprobeBinary == "" {
		return nil, errors.New("ffmpeg and ffprobe binaries required")
	}
	gen := &Generator{ffmpeg: ffmpegBinary, ffprobe: ffprobeBinary, runner: services.NewRunner()}
	for _, opt := range opts {
		opt(gen)
	}
	return gen, nil
}

// Duration probes the media duration in seconds. Returns 0 when the container
// does not report one; that is not an error.
func (g *Generator) Duration(ctx context.Context, mediaPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	}
	result, err := g.runner.Run(ctx, g.ffprobe, args, g.timeout)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, result.Diagnostic())
	}
	value := strings.TrimSpace(result.Stdout)
	if value == "" || value == "N/A" {
		return 0, nil
	}
	duration, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, nil
	}
	return duration, nil
}

// PickStart chooses where the preview clip begins: 10% in, clamped to 12-30s,
// adjusted so the clip fits inside short videos. Deterministic for a given
// duration.
func PickStart(duration, clipLen float64) float64 {
	if duration <= 0 {
		return 12.0
	}
	if duration < clipLen+2.0 {
		start := duration * 0.2
		if start > 2.0 {
			start = 2.0
		}
		return start
	}
	start := duration * 0.10
	if start < 12.0 {
		start = 12.0
	}
	if start > 30.0 {
		start = 30.0
	}
	if start+clipLen > duration {
		start = duration - clipLen - 1.0
		if start < 0 {
			start = 0
		}
	}
	return start
}

// RenderGIF renders a palette-optimized GIF preview of mediaPath into outPath.
// When the output exceeds opts.MaxBytes the width and fps are reduced and the
// render retried; after the attempt budget the best effort is returned.
func (g *Generator) RenderGIF(ctx context.Context, mediaPath, outPath string, start float64, opts GIFOptions) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("create preview directory: %w", err)
	}

	palette := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".palette.png"
	defer os.Remove(palette)

	fps := opts.FPS
	width := opts.Width

	const maxAttempts = 12
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := g.renderPass(ctx, mediaPath, outPath, palette, start, opts.Seconds, fps, width); err != nil {
			return "", err
		}

		info, err := os.Stat(outPath)
		if err != nil {
			return "", fmt.Errorf("stat rendered preview: %w", err)
		}
		if opts.MaxBytes <= 0 || info.Size() <= opts.MaxBytes {
			return outPath, nil
		}

		// Too big: shrink width first, then fps.
		width = max(240, width*85/100)
		fps = max(8, fps*90/100)
	}
	return outPath, nil
}

func (g *Generator) renderPass(ctx context.Context, mediaPath, outPath, palette string, start, seconds float64, fps, width int) error {
	common := []string{
		"-hide_banner", "-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", seconds),
		"-i", mediaPath,
	}

	paletteArgs := append(append([]string{}, common...),
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos,palettegen", fps, width),
		palette,
	)
	if result, err := g.runner.Run(ctx, g.ffmpeg, paletteArgs, g.timeout); err != nil {
		return fmt.Errorf("ffmpeg palettegen: %w\n%s", err, result.Diagnostic())
	}

	gifArgs := append(append([]string{}, common...),
		"-i", palette,
		"-lavfi", fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos [x]; [x][1:v] paletteuse=dither=bayer:bayer_scale=3", fps, width),
		outPath,
	)
	if result, err := g.runner.Run(ctx, g.ffmpeg, gifArgs, g.timeout); err != nil {
		return fmt.Errorf("ffmpeg gif render: %w\n%s", err, result.Diagnostic())
	}
	return nil
}

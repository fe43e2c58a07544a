package staging

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"snag/internal/logging"
	"snag/internal/services"
	"snag/internal/services/ytdlp"
)

// Downloader is the subset of the yt-dlp client the stager needs.
type Downloader interface {
	Metadata(ctx context.Context, url string) (ytdlp.Metadata, error)
	Download(ctx context.Context, url, destDir string) (string, error)
}

// Result describes a completed staging run.
type Result struct {
	Meta       ytdlp.Metadata
	MediaPath  string
	PosterPath string
	ScratchDir string
}

// Stager downloads media into per-job scratch directories.
type Stager struct {
	root       string
	downloader Downloader
	logger     *slog.Logger
}

// New constructs a stager rooted at root.
func New(root string, downloader Downloader, logger *slog.Logger) (*Stager, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("staging root required")
	}
	if downloader == nil {
		return nil, errors.New("downloader required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stager{root: root, downloader: downloader, logger: logger}, nil
}

// ScratchDir returns the scratch directory for jobID without creating it.
func (s *Stager) ScratchDir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

// BundleDir returns the subdirectory of a job's scratch holding the artifacts
// destined for the library. Work products that stay local (the preview GIF)
// live in the scratch root instead, so the placer can move the bundle as a
// unit.
func (s *Stager) BundleDir(jobID string) string {
	return filepath.Join(s.ScratchDir(jobID), "media")
}

// Stage fetches metadata and downloads the media for url into the job's
// scratch bundle. All failures carry the download marker so the engine routes
// the job to the error state.
func (s *Stager) Stage(ctx context.Context, jobID, url string) (Result, error) {
	scratch := s.ScratchDir(jobID)
	bundle := s.BundleDir(jobID)
	if err := os.MkdirAll(bundle, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrDownload, "stage", "create scratch directory", scratch, err)
	}

	meta, err := s.downloader.Metadata(ctx, url)
	if err != nil {
		return Result{}, services.Wrap(services.ErrDownload, "stage", "fetch metadata", url, err)
	}
	s.logger.Info("staging download",
		logging.String(logging.FieldJobID, jobID),
		logging.String("title", meta.Title),
		logging.String("url", url),
	)

	mediaPath, err := s.downloader.Download(ctx, url, bundle)
	if err != nil {
		return Result{}, services.Wrap(services.ErrDownload, "stage", "download", url, err)
	}

	result := Result{
		Meta:       meta,
		MediaPath:  mediaPath,
		ScratchDir: scratch,
	}
	if poster := posterFor(mediaPath); poster != "" {
		result.PosterPath = poster
	}
	return result, nil
}

// Discard removes the job's scratch directory. Used after successful
// placement; failed jobs keep their scratch for inspection.
func (s *Stager) Discard(jobID string) error {
	scratch := s.ScratchDir(jobID)
	if scratch == s.root || scratch == "" {
		return errors.New("refusing to remove staging root")
	}
	return os.RemoveAll(scratch)
}

func posterFor(mediaPath string) string {
	stem := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	poster := stem + "-poster.jpg"
	if _, err := os.Stat(poster); err != nil {
		return ""
	}
	return poster
}

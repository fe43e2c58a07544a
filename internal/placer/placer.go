package placer

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"snag/internal/fileutil"
	"snag/internal/logging"
	"snag/internal/services"
	"snag/internal/textutil"
)

// Placement describes where a job's artifacts ended up.
type Placement struct {
	MediaPath    string
	PosterPath   string
	UsedFallback bool
}

// Placer moves staged artifacts into the library tree.
type Placer struct {
	primaryRoot  string
	fallbackRoot string
	logger       *slog.Logger

	// connectivityCheck decides whether a primary failure routes to the
	// fallback root. Swapped out in tests; production uses errno
	// classification.
	connectivityCheck func(error) bool
}

// New constructs a placer. fallbackRoot may be empty, in which case an
// unreachable primary fails the job like any other placement error.
func New(primaryRoot, fallbackRoot string, logger *slog.Logger) (*Placer, error) {
	primaryRoot = strings.TrimSpace(primaryRoot)
	if primaryRoot == "" {
		return nil, errors.New("primary library root required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Placer{
		primaryRoot:       primaryRoot,
		fallbackRoot:      strings.TrimSpace(fallbackRoot),
		logger:            logger,
		connectivityCheck: IsConnectivityError,
	}, nil
}

// relativeDir maps a category and channel to the library-relative directory.
// Deterministic: identical inputs always produce the identical path.
func relativeDir(category, channel string) string {
	return filepath.Join(
		textutil.SanitizeSegment(category, "unsorted"),
		textutil.SanitizeSegment(channel, "unknown"),
	)
}

// FinalDir returns the primary destination directory for a job.
func (p *Placer) FinalDir(category, channel string) string {
	return filepath.Join(p.primaryRoot, relativeDir(category, channel))
}

// Place merges the staged bundle directory (the directory holding mediaPath,
// including the poster sidecar when present) into the library. On a
// connectivity-class failure against the primary root the bundle goes to the
// fallback root under the same relative directory.
func (p *Placer) Place(category, channel, mediaPath, posterPath string) (Placement, error) {
	rel := relativeDir(category, channel)

	placement, err := p.placeInto(filepath.Join(p.primaryRoot, rel), mediaPath, posterPath)
	if err == nil {
		return placement, nil
	}
	if p.fallbackRoot == "" || !p.connectivityCheck(err) {
		return Placement{}, services.Wrap(services.ErrPlacement, "place", "move into library", rel, err)
	}

	p.logger.Warn("primary library unreachable, using fallback",
		logging.String("primary", p.primaryRoot),
		logging.String("fallback", p.fallbackRoot),
		logging.Error(err),
	)
	placement, fbErr := p.placeInto(filepath.Join(p.fallbackRoot, rel), mediaPath, posterPath)
	if fbErr != nil {
		return Placement{}, services.Wrap(services.ErrPlacement, "place", "move into fallback", rel, fbErr)
	}
	placement.UsedFallback = true
	return placement, nil
}

func (p *Placer) placeInto(destDir, mediaPath, posterPath string) (Placement, error) {
	if err := fileutil.MoveMerge(filepath.Dir(mediaPath), destDir); err != nil {
		return Placement{}, err
	}
	placement := Placement{MediaPath: filepath.Join(destDir, filepath.Base(mediaPath))}
	if posterPath != "" {
		placement.PosterPath = filepath.Join(destDir, filepath.Base(posterPath))
	}
	return placement, nil
}

package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"snag/internal/logging"
	"snag/internal/queue"
	"snag/internal/textutil"
)

// Status is the ingest verdict reported back to the producer.
type Status string

const (
	StatusQueued            Status = "QUEUED"
	StatusAlreadyQueued     Status = "ALREADY_QUEUED"
	StatusAlreadyDownloaded Status = "ALREADY_DOWNLOADED"
	StatusError             Status = "ERROR"
)

// Result describes what ingest did with one payload.
type Result struct {
	Status         Status
	Detail         string
	URL            string
	DescriptorPath string
}

// ArchiveKeyFunc computes the yt-dlp download-archive line for a URL. nil
// disables the already-downloaded check.
type ArchiveKeyFunc func(ctx context.Context, url string) (string, error)

// Option configures the ingestor.
type Option func(*Ingestor)

// WithArchiveCheck enables the already-downloaded check against the yt-dlp
// archive file at archivePath.
func WithArchiveCheck(archivePath string, keyFunc ArchiveKeyFunc) Option {
	return func(i *Ingestor) {
		i.archivePath = strings.TrimSpace(archivePath)
		i.archiveKey = keyFunc
	}
}

// Ingestor validates and enqueues producer payloads.
type Ingestor struct {
	queue       *queue.Queue
	archivePath string
	archiveKey  ArchiveKeyFunc
	logger      *slog.Logger
}

// New constructs an ingestor over the queue.
func New(q *queue.Queue, logger *slog.Logger, opts ...Option) (*Ingestor, error) {
	if q == nil {
		return nil, errors.New("queue required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ing := &Ingestor{queue: q, logger: logging.NewComponentLogger(logger, "ingest")}
	for _, opt := range opts {
		opt(ing)
	}
	return ing, nil
}

// Ingest processes one payload. A non-nil error always pairs with
// StatusError; duplicate verdicts are successes from the producer's side.
func (i *Ingestor) Ingest(ctx context.Context, payload []byte) (Result, error) {
	decoded, err := decodePayload(payload)
	if err != nil {
		return Result{Status: StatusError, Detail: err.Error()}, err
	}

	// Validate with a throwaway ID; the real descriptor name is minted below.
	job, err := queue.ParseJob("ingest", decoded)
	if err != nil {
		return Result{Status: StatusError, Detail: err.Error()}, err
	}

	if i.queue.HasURL(job.URL) {
		i.logger.Info("duplicate of in-flight job", logging.String("url", job.URL))
		return Result{Status: StatusAlreadyQueued, URL: job.URL, Detail: "url already pending or processing"}, nil
	}

	if downloaded, detail := i.alreadyDownloaded(ctx, job.URL); downloaded {
		i.logger.Info("url already downloaded", logging.String("url", job.URL))
		return Result{Status: StatusAlreadyDownloaded, URL: job.URL, Detail: detail}, nil
	}

	// App token prefix keeps descriptor listings scannable by eye.
	name := textutil.SanitizeToken(job.App) + "-" + uuid.NewString() + queue.JobExt
	path, err := i.queue.Enqueue(name, decoded)
	if err != nil {
		return Result{Status: StatusError, URL: job.URL, Detail: err.Error()}, err
	}
	i.logger.Info("descriptor queued",
		logging.String("url", job.URL),
		logging.String("descriptor", path),
	)
	return Result{Status: StatusQueued, URL: job.URL, DescriptorPath: path}, nil
}

// alreadyDownloaded consults the yt-dlp download archive. The check is best
// effort: any failure computing the key or reading the archive just lets the
// payload through, and yt-dlp's own archive handling catches the repeat.
func (i *Ingestor) alreadyDownloaded(ctx context.Context, url string) (bool, string) {
	if i.archiveKey == nil || i.archivePath == "" {
		return false, ""
	}
	key, err := i.archiveKey(ctx, url)
	if err != nil {
		i.logger.Warn("archive key lookup failed", logging.Error(err))
		return false, ""
	}
	content, err := os.ReadFile(i.archivePath)
	if err != nil {
		return false, ""
	}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == key {
			return true, "archive entry " + key
		}
	}
	return false, ""
}

// decodePayload accepts raw JSON or a base64-wrapped JSON object.
func decodePayload(payload []byte) ([]byte, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, errors.New("empty payload")
	}
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}
	for _, encoding := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding} {
		decoded, err := encoding.DecodeString(trimmed)
		if err != nil {
			continue
		}
		if json.Valid(decoded) {
			return decoded, nil
		}
	}
	return nil, errors.New("payload is neither JSON nor base64-encoded JSON")
}

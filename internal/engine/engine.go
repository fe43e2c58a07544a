package engine

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"snag/internal/config"
	"snag/internal/history"
	"snag/internal/logging"
	"snag/internal/notifications"
	"snag/internal/placer"
	"snag/internal/queue"
	"snag/internal/services"
	"snag/internal/services/ffmpeg"
	"snag/internal/services/ytdlp"
	"snag/internal/staging"
	"snag/internal/toolpath"
)

// Previewer renders GIF previews. Satisfied by *ffmpeg.Generator.
type Previewer interface {
	Duration(ctx context.Context, mediaPath string) (float64, error)
	RenderGIF(ctx context.Context, mediaPath, outPath string, start float64, opts ffmpeg.GIFOptions) (string, error)
}

// Deps holds the pipeline's external pieces. Downloader and Previewer are
// factories because tool resolution is lazy: a missing binary fails the job
// that needed it, never engine construction.
type Deps struct {
	Queue      *queue.Queue
	Notifier   notifications.Service
	History    *history.Store
	Placer     *placer.Placer
	Downloader func() (staging.Downloader, error)
	Previewer  func() (Previewer, error)
}

// Engine processes queued download jobs.
type Engine struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
}

// New builds an engine from explicit dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if deps.Queue == nil || deps.Placer == nil || deps.Downloader == nil {
		return nil, errors.New("queue, placer, and downloader required")
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{cfg: cfg, deps: deps, logger: logging.NewComponentLogger(logger, "engine")}, nil
}

// NewDefault builds an engine with production wiring: lazy tool resolution,
// Discord notifications when configured, and the SQLite history ledger when
// enabled.
func NewDefault(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	notifier, err := notifications.NewService(cfg)
	if err != nil {
		return nil, err
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, err
		}
	}

	place, err := placer.New(cfg.Paths.DownloadDir, cfg.Paths.FallbackDir, logger)
	if err != nil {
		return nil, err
	}

	resolver := toolpath.NewResolver(cfg)
	deps := Deps{
		Queue:    queue.New(cfg),
		Notifier: notifier,
		History:  store,
		Placer:   place,
		Downloader: func() (staging.Downloader, error) {
			binary, err := resolver.YtDlp()
			if err != nil {
				return nil, err
			}
			opts := []ytdlp.Option{
				ytdlp.WithTimeout(time.Duration(cfg.Download.TimeoutSeconds) * time.Second),
			}
			if cfg.Download.ArchiveEnabled {
				opts = append(opts, ytdlp.WithArchive(cfg.ArchivePath()))
			}
			// yt-dlp needs ffmpeg for thumbnail conversion; resolution failure
			// just omits the hint and lets yt-dlp find its own.
			if ffmpegPath, ffErr := resolver.FFmpeg(); ffErr == nil {
				opts = append(opts, ytdlp.WithFFmpegLocation(ffmpegPath))
			}
			return ytdlp.New(binary, opts...)
		},
		Previewer: func() (Previewer, error) {
			ffmpegPath, err := resolver.FFmpeg()
			if err != nil {
				return nil, err
			}
			ffprobePath, err := resolver.FFprobe()
			if err != nil {
				return nil, err
			}
			return ffmpeg.New(ffmpegPath, ffprobePath,
				ffmpeg.WithTimeout(time.Duration(cfg.Preview.TimeoutSeconds)*time.Second))
		},
	}
	return New(cfg, logger, deps)
}

// Close releases resources owned by the engine.
func (e *Engine) Close() error {
	if e.deps.History != nil {
		return e.deps.History.Close()
	}
	return nil
}

// RunSummary reports what one queue pass did.
type RunSummary struct {
	Pending   int
	Claimed   int
	Completed int
	Failed    int
	Rejected  int
}

// RunOnce performs one pass over the incoming directory, claiming and
// processing up to the configured per-run limit.
func (e *Engine) RunOnce(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{}
	if err := e.cfg.EnsureDirectories(); err != nil {
		return summary, err
	}

	pending, err := e.deps.Queue.Pending()
	if err != nil {
		return summary, err
	}
	summary.Pending = len(pending)

	limit := e.cfg.Queue.MaxPerRun
	for _, name := range pending {
		if limit > 0 && summary.Claimed >= limit {
			break
		}
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		_, claimed, err := e.deps.Queue.Claim(name)
		if err != nil {
			// One bad descriptor must not stop the scan.
			e.logger.Error("failed to claim descriptor",
				logging.String(logging.FieldJobID, name),
				logging.Error(err),
			)
			continue
		}
		if !claimed {
			// Another run won the rename race.
			continue
		}
		summary.Claimed++

		switch outcome := e.process(ctx, name); outcome {
		case outcomeCompleted:
			summary.Completed++
		case outcomeRejected:
			summary.Rejected++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeRejected
)

// process runs one claimed descriptor through the pipeline and always leaves
// it in exactly one terminal directory.
func (e *Engine) process(ctx context.Context, name string) outcome {
	jobID := strings.TrimSuffix(name, queue.JobExt)
	logger := e.logger.With(logging.String(logging.FieldJobID, name))

	content, err := e.deps.Queue.Read(name)
	if err != nil {
		return e.fail(ctx, logger, name, queue.Job{ID: jobID}, err)
	}

	job, err := queue.ParseJob(jobID, content)
	if err != nil {
		return e.fail(ctx, logger, name, queue.Job{ID: jobID}, err)
	}
	logger.Info("job claimed",
		logging.String("url", job.URL),
		logging.String("app", job.App),
		logging.String("category", job.Category),
	)

	// Only the yt-dlp handler exists; the app field is validated here rather
	// than at parse time so the descriptor reaches the error directory with a
	// diagnostic instead of silently rotting in incoming.
	if !strings.EqualFold(job.App, queue.DefaultApp) {
		err := services.Wrap(services.ErrValidation, "stage", "select handler", "unsupported app "+job.App, nil)
		return e.fail(ctx, logger, name, job, err)
	}

	downloader, err := e.deps.Downloader()
	if err != nil {
		return e.fail(ctx, logger, name, job, services.Wrap(services.ErrToolNotFound, "stage", "resolve downloader", "", err))
	}
	stager, err := staging.New(e.cfg.StagingRoot(), downloader, e.logger)
	if err != nil {
		return e.fail(ctx, logger, name, job, err)
	}

	staged, err := stager.Stage(ctx, jobID, job.URL)
	if err != nil {
		return e.fail(ctx, logger, name, job, err)
	}
	logger.Info("download staged",
		logging.String(logging.FieldStage, "stage"),
		logging.String("title", staged.Meta.Title),
		logging.String("media", staged.MediaPath),
	)

	previewPath, previewErr := e.renderPreview(ctx, logger, staged)

	placement, err := e.deps.Placer.Place(job.Category, staged.Meta.BestChannel(), staged.MediaPath, staged.PosterPath)
	if err != nil {
		return e.fail(ctx, logger, name, job, err)
	}
	logger.Info("media placed",
		logging.String(logging.FieldStage, "place"),
		logging.String("path", placement.MediaPath),
		logging.Bool("fallback", placement.UsedFallback),
	)

	outcomeMsg := notifications.Outcome{
		Title:        staged.Meta.Title,
		Channel:      staged.Meta.BestChannel(),
		URL:          job.URL,
		FinalPath:    placement.MediaPath,
		UsedFallback: placement.UsedFallback,
		PreviewPath:  previewPath,
	}
	if previewErr != nil {
		outcomeMsg.PreviewError = previewErr.Error()
	}
	if err := e.deps.Notifier.NotifyPlaced(ctx, outcomeMsg); err != nil {
		logger.Warn("notification delivery failed",
			logging.String(logging.FieldStage, "notify"),
			logging.Error(err),
		)
	}

	// The preview lives in scratch and has been delivered; the whole scratch
	// directory goes with it.
	if err := stager.Discard(jobID); err != nil {
		logger.Warn("failed to remove scratch directory", logging.Error(err))
	}

	if _, err := e.deps.Queue.Finish(name, true); err != nil {
		logger.Error("failed to finalize job", logging.Error(err))
		return outcomeFailed
	}
	e.record(ctx, logger, history.Record{
		JobID:        jobID,
		URL:          job.URL,
		Title:        staged.Meta.Title,
		Channel:      staged.Meta.BestChannel(),
		Category:     job.Category,
		Status:       history.StatusCompleted,
		FinalPath:    placement.MediaPath,
		UsedFallback: placement.UsedFallback,
	})
	logger.Info("job completed", logging.String("path", placement.MediaPath))
	return outcomeCompleted
}

// renderPreview is best effort: any failure is reported in the notification
// but never fails the job.
func (e *Engine) renderPreview(ctx context.Context, logger *slog.Logger, staged staging.Result) (string, error) {
	if !e.cfg.Preview.Enabled || e.deps.Previewer == nil {
		return "", nil
	}

	previewer, err := e.deps.Previewer()
	if err != nil {
		wrapped := services.Wrap(services.ErrPreview, "preview", "resolve renderer", "", err)
		logger.Warn("preview skipped", logging.Error(wrapped))
		return "", wrapped
	}

	duration, err := previewer.Duration(ctx, staged.MediaPath)
	if err != nil {
		// Unknown duration still renders; the start heuristic has a floor.
		logger.Warn("duration probe failed", logging.Error(err))
		duration = 0
	}

	start := ffmpeg.PickStart(duration, e.cfg.Preview.Seconds)
	outPath := filepath.Join(staged.ScratchDir, "preview.gif")
	rendered, err := previewer.RenderGIF(ctx, staged.MediaPath, outPath, start, ffmpeg.GIFOptions{
		Seconds:  e.cfg.Preview.Seconds,
		FPS:      e.cfg.Preview.FPS,
		Width:    e.cfg.Preview.Width,
		MaxBytes: e.cfg.Preview.MaxBytes,
	})
	if err != nil {
		wrapped := services.Wrap(services.ErrPreview, "preview", "render gif", "", err)
		logger.Warn("preview rendering failed", logging.Error(wrapped))
		return "", wrapped
	}
	logger.Info("preview rendered",
		logging.String(logging.FieldStage, "preview"),
		logging.String("path", rendered),
		logging.Float64("start", start),
	)
	return rendered, nil
}

// fail retires the descriptor to the error directory with a diagnostic and
// sends the job's single notification.
func (e *Engine) fail(ctx context.Context, logger *slog.Logger, name string, job queue.Job, cause error) outcome {
	detail := "unknown failure"
	if cause != nil {
		detail = cause.Error()
	}
	logger.Error("job failed", logging.Error(cause))

	if _, err := e.deps.Queue.Finish(name, false); err != nil {
		logger.Error("failed to retire job to error state", logging.Error(err))
	}
	if err := e.deps.Queue.WriteDiagnostic(name, detail); err != nil {
		logger.Warn("failed to write diagnostic", logging.Error(err))
	}

	status := history.StatusFailed
	result := outcomeFailed
	if services.Rejected(cause) {
		status = history.StatusRejected
		result = outcomeRejected
		if err := e.deps.Notifier.NotifyRejected(ctx, job.ID, detail); err != nil {
			logger.Warn("notification delivery failed", logging.Error(err))
		}
	} else {
		if err := e.deps.Notifier.NotifyFailed(ctx, job.ID, job.URL, cause); err != nil {
			logger.Warn("notification delivery failed", logging.Error(err))
		}
	}

	e.record(ctx, logger, history.Record{
		JobID:    job.ID,
		URL:      job.URL,
		Category: job.Category,
		Status:   status,
		Detail:   detail,
	})
	return result
}

// record appends to the history ledger. The ledger is observational, so
// failures only warn.
func (e *Engine) record(ctx context.Context, logger *slog.Logger, rec history.Record) {
	if e.deps.History == nil {
		return
	}
	if err := e.deps.History.Append(ctx, rec); err != nil {
		logger.Warn("failed to record history", logging.Error(err))
	}
}

type noopNotifier struct{}

func (noopNotifier) NotifyPlaced(context.Context, notifications.Outcome) error { return nil }
func (noopNotifier) NotifyFailed(context.Context, string, string, error) error { return nil }
func (noopNotifier) NotifyRejected(context.Context, string, string) error      { return nil }
func (noopNotifier) TestNotification(context.Context) error                    { return nil }

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/rjeczalik/notify"

	"snag/internal/logging"
)

// Watch processes the queue continuously: filesystem events on the incoming
// directory trigger a pass immediately, with a poll tick as backstop for
// events the watcher misses. A file lock keeps watch mode single-instance;
// one-shot runs stay lock-free because claims are already rename-atomic.
func (e *Engine) Watch(ctx context.Context) error {
	if err := e.cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock := flock.New(e.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another watch instance holds %s", e.cfg.LockPath())
	}
	defer lock.Unlock()

	events := make(chan notify.EventInfo, 16)
	if err := notify.Watch(e.cfg.IncomingDir(), events, notify.Create, notify.Rename); err != nil {
		return fmt.Errorf("watch incoming directory: %w", err)
	}
	defer notify.Stop(events)

	interval := time.Duration(e.cfg.Watch.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("watching queue",
		logging.String("incoming", e.cfg.IncomingDir()),
		logging.Duration("poll_interval", interval),
	)

	// Drain whatever accumulated before the watcher started.
	e.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-events:
			flushEvents(events)
			e.drain(ctx)
		case <-ticker.C:
			e.drain(ctx)
		}
	}
}

// drain runs queue passes until nothing is left to claim. Errors are logged
// and end the current drain; the watch loop itself keeps running.
func (e *Engine) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		summary, err := e.RunOnce(ctx)
		if err != nil {
			e.logger.Error("queue pass failed", logging.Error(err))
			return
		}
		if summary.Claimed == 0 {
			return
		}
	}
}

// flushEvents collapses an event burst into one drain.
func flushEvents(events chan notify.EventInfo) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}

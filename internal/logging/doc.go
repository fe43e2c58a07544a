// Package logging assembles the structured slog loggers used across snag.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing (stdout plus the snag.log file under the state log directory), and
// exposes attr helpers plus a no-op logger for tests and wiring code that
// cannot fail. Color output is only emitted when the sole destination is an
// interactive terminal.
package logging

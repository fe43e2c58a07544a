// Package services defines shared utilities consumed by the pipeline stages
// and external tool integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that translate stage
//     failures into consistent terminal states and notification categories.
//   - The Runner abstraction that makes command execution against yt-dlp and
//     ffmpeg testable.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, diagnostics, timeouts) stays uniform across the pipeline.
package services

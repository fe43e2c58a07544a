// Package main hosts the snag CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the one-shot queue pass, the
// long-running watch mode, descriptor ingest, queue and staging maintenance,
// the outcome history, dependency checks, and configuration scaffolding. It
// centralizes configuration resolution and structured logging setup so the
// subcommands stay declarative; the heavy lifting lives in the internal
// packages.
package main

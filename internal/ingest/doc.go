// Package ingest turns raw payloads from external producers into queued job
// descriptors. Payloads arrive as JSON, optionally base64-wrapped by shell
// glue that cannot quote safely. Ingest validates the descriptor, refuses
// duplicates of in-flight or already-downloaded URLs, and publishes the
// descriptor atomically under a fresh unique name.
package ingest

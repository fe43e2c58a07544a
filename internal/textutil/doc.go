// Package textutil sanitizes titles and channel names into filesystem-safe
// path segments. Sanitization is deterministic: the same input always maps to
// the same segment, which keeps final library paths stable across runs.
package textutil

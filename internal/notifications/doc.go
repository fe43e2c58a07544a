// Package notifications announces job outcomes over a Discord webhook. The
// service is always safe to call: without a configured webhook every method
// is a noop, and delivery failures are reported to the caller but never
// escalate a job to failed.
package notifications

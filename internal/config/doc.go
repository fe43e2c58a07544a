// Package config loads, normalizes, and validates snag configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SNAG_DISCORD_WEBHOOK_URL. The Config type centralizes every knob the CLI
// needs, including the derived queue directory layout (incoming, processing,
// done, error) that encodes job state.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

// Package config loads, normalizes, and validates audiograb configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AUDIOGRAB_API_TOKEN. The Config type centralizes every knob the server and CLI
// need: output and workspace directories, request hardening limits, provider
// selection, transcoder binaries, and per-step timeouts.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

// Package notifications pushes download outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. The on_success and on_failure switches in
// config.toml filter events before any HTTP request is made.
package notifications

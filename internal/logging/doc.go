// Package logging assembles structured slog loggers and formatting helpers used
// across audiograb.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag every
// line with the request's correlation id. The package also provides a no-op
// logger for tests and wiring code that cannot fail, plus log file retention.
package logging

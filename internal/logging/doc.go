// Package logging assembles structured slog loggers and formatting helpers used
// across saasywrap.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so executor and chat code can
// tag log lines with the session, list kind, operation id, and correlation id.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging

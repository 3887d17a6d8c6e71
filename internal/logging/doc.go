// Package logging assembles structured slog loggers and formatting helpers used
// across plexmover.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so mover and poller code can
// tag log lines with torrent hashes and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging

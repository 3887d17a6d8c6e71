// Package services defines shared utilities consumed by the mover, poller,
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp torrent hashes, originating components, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let callers classify
//     failures (not found, transfer failure, configuration) with errors.Is.
//
// Use these helpers when wiring new logic so error handling and observability
// stay uniform across the daemon.
package services

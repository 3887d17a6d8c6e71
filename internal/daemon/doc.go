// Package daemon coordinates the long-running plexmover process.
//
// It wires the catalog store, the workflow manager, the mover, and the feed
// service into a single lifecycle with flock-based locking to prevent multiple
// instances, and serves the HTTP API (gin) that the web front end and the CLI
// talk to. Cached artwork is served under /posters.
//
// Keep orchestration logic here: individual workflow steps live in their
// respective packages while the daemon focuses on startup, shutdown, and
// request handling.
package daemon

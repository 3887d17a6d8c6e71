// Package api defines the wire-format types of the daemon HTTP API and the
// client the CLI uses to talk to it.
//
// # Key Types
//
// MovieView: a catalog entry with live copy progress folded in and poster
// URLs resolved against the daemon's /posters route.
//
// Message: the {success, message} envelope returned by every mutating
// endpoint. Failures still carry a Message so clients can print it verbatim.
//
// Client: a small JSON-over-HTTP client bound to the daemon's api_bind
// address with optional bearer authentication.
//
// # Design Notes
//
// JSON field names are snake_case to stay compatible with the existing web
// front end. Timestamps are RFC3339.
package api

// Package catalog owns the user-facing lifecycle of catalog entries.
//
// It creates entries for torrents the reconciler has not seen before,
// enriching them with TMDB metadata and cached artwork when a metadata source
// is configured, and implements the ignore, watchlist and feed-cleanup
// operations exposed by the API and CLI.
package catalog

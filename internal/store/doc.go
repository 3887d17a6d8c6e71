// Package store persists the move-history ledger and the movie catalog in
// SQLite.
//
// The history table is append-only: every move attempt adds a record and the
// newest record for a torrent name is authoritative. Records are removed only
// when an operator deletes the matching catalog entry. The catalog table
// caches one entry per content hash, mirroring live torrent state (status,
// progress, state, size) alongside TMDB metadata and the operator flags
// (ignored, watchlist).
//
// Lookups that find nothing return (nil, nil). Schema changes bump the version
// in schema.go; older databases are rejected with ErrSchemaMismatch.
package store

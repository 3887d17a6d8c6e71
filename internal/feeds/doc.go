// Package feeds imports movies announced by RSS feeds into the catalog.
//
// Entries from every enabled feed are merged, sorted newest first, deduped by
// release title and year and inserted as feed-only catalog rows keyed by a
// pseudo-hash. Ignored titles are never re-added; watchlisted titles wait until
// their watchlist period expires. A scheduler refreshes feeds on their
// configured intervals and reports the next due feed.
package feeds

// Package torrent adapts the qBittorrent Web UI client into the item snapshots
// the reconciler and mover consume.
//
// Items are refreshed wholesale on each poll; nothing here caches state
// between calls. The adapter logs in lazily and re-authenticates once when a
// request fails, which covers Web UI session expiry.
package torrent

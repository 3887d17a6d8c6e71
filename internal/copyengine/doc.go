// Package copyengine copies torrent payloads into the library in 1 MiB chunks
// with live progress, an aggregate bandwidth cap shared fairly across every
// concurrent copy, and cooperative cancellation.
//
// The Engine owns two key-scoped tables: the job table (progress, speed,
// status per torrent hash) and the cancel set. Readers always receive value
// copies. A finished job lingers for a short grace period so pollers observe
// the done state; a failed job stays until a new copy for the same key
// replaces it.
package copyengine

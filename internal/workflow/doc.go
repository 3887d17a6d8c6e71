// Package workflow drives the periodic reconciliation of torrent client state
// with the catalog.
//
// Each pass lists torrents, derives their display status from the move ledger
// and the copy engine, creates catalog entries for new torrents, writes
// tracking updates and orphan transitions, and hands download-completed edges
// to the auto-match dispatcher. When the scheduler is enabled the pass ends
// with an auto-move sweep of finished torrents. The Manager also hosts the
// feed scheduler so the daemon has a single background lifecycle to start and
// stop.
package workflow

// Package reconcile derives the canonical status of each torrent and diffs
// the live client state against the persisted catalog.
//
// Both entry points are pure. DeriveStatus consumes an item snapshot, the
// newest history record, copy-job presence, and a destination-existence probe.
// ReconcileCatalog turns live items plus catalog entries into a Plan of
// creates, tracking updates, completed transitions, and orphans. The workflow
// package owns the IO that feeds and applies them.
package reconcile

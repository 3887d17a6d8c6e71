package reconcile

import (
	"context"

	"plexmover/internal/store"
	"plexmover/internal/textutil"
	"plexmover/internal/torrent"
)

// completedStatuses are the statuses that, following a persisted
// "downloading", mark a finished download.
var completedStatuses = map[store.Status]struct{}{
	store.StatusPending: {},
	"uploading":         {},
	"completed":         {},
	"queuedUP":          {},
	"stalledUP":         {},
}

// NewItem is a live torrent with no catalog entry yet.
type NewItem struct {
	Item   torrent.Item
	Status store.Status
}

// Completion is a downloading -> finished edge detected this pass.
type Completion struct {
	Item  torrent.Item
	Entry store.Entry
}

// Plan is the set of catalog writes one reconciliation pass requires.
type Plan struct {
	Create    []NewItem
	Updates   []store.TrackingUpdate
	Completed []Completion
	// Orphan lists hashes of entries whose torrent left the client.
	Orphan []string
}

// Empty reports whether the plan requires no writes.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Updates) == 0 && len(p.Completed) == 0 && len(p.Orphan) == 0
}

// DeriveFunc resolves an item's status, typically by closing over the history
// ledger and copy engine.
type DeriveFunc func(torrent.Item) store.Status

// ReconcileCatalog diffs live items against persisted entries. Ignored
// entries never appear in the plan.
func ReconcileCatalog(items []torrent.Item, entries []store.Entry, derive DeriveFunc) Plan {
	byHash := make(map[string]store.Entry, len(entries))
	for _, entry := range entries {
		byHash[entry.Hash] = entry
	}

	var plan Plan
	live := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := live[item.Hash]; dup {
			continue
		}
		live[item.Hash] = struct{}{}

		entry, ok := byHash[item.Hash]
		if !ok {
			if textutil.IsSeries(item.Name) {
				continue
			}
			plan.Create = append(plan.Create, NewItem{Item: item, Status: derive(item)})
			continue
		}
		if entry.Ignored {
			continue
		}

		status := derive(item)
		update := store.TrackingUpdate{
			Hash:        item.Hash,
			Status:      status,
			Progress:    item.Progress,
			State:       item.State,
			Size:        item.Size,
			TorrentName: entry.TorrentName,
		}
		if update.TorrentName == "" {
			update.TorrentName = item.Name
		}
		if trackingChanged(entry, update) {
			plan.Updates = append(plan.Updates, update)
		}
		if entry.Status == store.StatusDownloading {
			if _, done := completedStatuses[status]; done {
				plan.Completed = append(plan.Completed, Completion{Item: item, Entry: entry})
			}
		}
	}

	for _, entry := range entries {
		if _, ok := live[entry.Hash]; ok {
			continue
		}
		if entry.Ignored || entry.State == store.StateRSS || entry.Status == store.StatusOrphaned {
			continue
		}
		plan.Orphan = append(plan.Orphan, entry.Hash)
	}
	return plan
}

func trackingChanged(entry store.Entry, update store.TrackingUpdate) bool {
	return entry.Status != update.Status ||
		entry.Progress != update.Progress ||
		entry.State != update.State ||
		entry.Size != update.Size ||
		entry.TorrentName != update.TorrentName
}

// TrackingWriter persists the update and orphan halves of a plan.
type TrackingWriter interface {
	UpdateEntryTracking(ctx context.Context, update store.TrackingUpdate) error
	MarkOrphaned(ctx context.Context, hash string) error
}

// ApplyTracking writes plan updates then orphans. A failed write is recorded
// against its hash and the remaining writes still run; the next pass retries
// the failed rows from persisted state.
func ApplyTracking(ctx context.Context, w TrackingWriter, plan Plan) map[string]error {
	var failed map[string]error
	record := func(hash string, err error) {
		if failed == nil {
			failed = make(map[string]error)
		}
		failed[hash] = err
	}
	for _, update := range plan.Updates {
		if err := w.UpdateEntryTracking(ctx, update); err != nil {
			record(update.Hash, err)
		}
	}
	for _, hash := range plan.Orphan {
		if err := w.MarkOrphaned(ctx, hash); err != nil {
			record(hash, err)
		}
	}
	return failed
}

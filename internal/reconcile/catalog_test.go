package reconcile

import (
	"context"
	"errors"
	"testing"

	"plexmover/internal/store"
	"plexmover/internal/torrent"
)

func fixedDerive(statuses map[string]store.Status) DeriveFunc {
	return func(item torrent.Item) store.Status {
		if status, ok := statuses[item.Hash]; ok {
			return status
		}
		return store.StatusPending
	}
}

type memoryWriter struct {
	entries map[string]*store.Entry
	failOn  string
}

func newMemoryWriter(entries []store.Entry) *memoryWriter {
	w := &memoryWriter{entries: make(map[string]*store.Entry)}
	for i := range entries {
		e := entries[i]
		w.entries[e.Hash] = &e
	}
	return w
}

func (w *memoryWriter) UpdateEntryTracking(_ context.Context, u store.TrackingUpdate) error {
	if u.Hash == w.failOn {
		return errors.New("disk full")
	}
	e := w.entries[u.Hash]
	e.Status = u.Status
	e.Progress = u.Progress
	e.State = u.State
	e.Size = u.Size
	if e.TorrentName == "" {
		e.TorrentName = u.TorrentName
	}
	return nil
}

func (w *memoryWriter) MarkOrphaned(_ context.Context, hash string) error {
	e := w.entries[hash]
	e.Status = store.StatusOrphaned
	e.Progress = 0
	e.State = store.StateOrphaned
	return nil
}

func (w *memoryWriter) create(items []NewItem) {
	for _, n := range items {
		w.entries[n.Item.Hash] = &store.Entry{
			Hash:        n.Item.Hash,
			Title:       n.Item.Name,
			Status:      n.Status,
			State:       n.Item.State,
			Progress:    n.Item.Progress,
			Size:        n.Item.Size,
			TorrentName: n.Item.Name,
		}
	}
}

func (w *memoryWriter) list() []store.Entry {
	out := make([]store.Entry, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, *e)
	}
	return out
}

func TestReconcileCatalogPlansEveryKind(t *testing.T) {
	items := []torrent.Item{
		{Hash: "new", Name: "Arrival (2016)", State: "downloading", Progress: 0.1},
		{Hash: "series", Name: "Show.S01E02.1080p", State: "downloading"},
		{Hash: "done", Name: "Heat (1995)", State: "uploading", Progress: 1, Size: 10},
		{Hash: "same", Name: "Alien (1979)", State: "uploading", Progress: 1, Size: 5},
		{Hash: "ign", Name: "Ignored (2000)", State: "uploading", Progress: 1},
	}
	entries := []store.Entry{
		{Hash: "done", Status: store.StatusDownloading, State: "downloading", Progress: 0.9, Size: 10},
		{Hash: "same", Status: store.StatusPending, State: "uploading", Progress: 1, Size: 5, TorrentName: "Alien (1979)"},
		{Hash: "ign", Status: store.StatusDownloading, State: "downloading", Ignored: true},
		{Hash: "gone", Status: store.StatusMoved, State: "uploading"},
		{Hash: "rss", Status: store.StatusNew, State: store.StateRSS},
		{Hash: "orph", Status: store.StatusOrphaned, State: store.StateOrphaned},
		{Hash: "ign-gone", Status: store.StatusPending, Ignored: true},
	}
	derive := fixedDerive(map[string]store.Status{"new": store.StatusDownloading})

	plan := ReconcileCatalog(items, entries, derive)

	if len(plan.Create) != 1 || plan.Create[0].Item.Hash != "new" || plan.Create[0].Status != store.StatusDownloading {
		t.Fatalf("unexpected creates: %#v", plan.Create)
	}
	if len(plan.Updates) != 1 || plan.Updates[0].Hash != "done" {
		t.Fatalf("unexpected updates: %#v", plan.Updates)
	}
	if plan.Updates[0].TorrentName != "Heat (1995)" {
		t.Fatalf("expected torrent name backfill, got %q", plan.Updates[0].TorrentName)
	}
	if len(plan.Completed) != 1 || plan.Completed[0].Item.Hash != "done" {
		t.Fatalf("unexpected completions: %#v", plan.Completed)
	}
	if len(plan.Orphan) != 1 || plan.Orphan[0] != "gone" {
		t.Fatalf("unexpected orphans: %#v", plan.Orphan)
	}
}

func TestReconcileCatalogIsIdempotent(t *testing.T) {
	items := []torrent.Item{
		{Hash: "a", Name: "Arrival (2016)", State: "stalledUP", Progress: 1, Size: 100},
		{Hash: "b", Name: "Brazil (1985)", State: "downloading", Progress: 0.5, Size: 50},
		{Hash: "d", Name: "Dune (2021)", State: "queuedUP", Progress: 1, Size: 70},
	}
	entries := []store.Entry{
		{Hash: "b", Status: store.StatusNew, State: "metaDL"},
		{Hash: "d", Status: store.StatusDownloading, State: "downloading", Progress: 0.99},
		{Hash: "x", Status: store.StatusPending, State: "uploading"},
	}
	derive := fixedDerive(map[string]store.Status{"b": store.StatusDownloading})
	writer := newMemoryWriter(entries)

	first := ReconcileCatalog(items, writer.list(), derive)
	if first.Empty() {
		t.Fatal("expected first pass to plan writes")
	}
	if len(first.Completed) != 1 || first.Completed[0].Item.Hash != "d" {
		t.Fatalf("expected completion for d, got %#v", first.Completed)
	}
	writer.create(first.Create)
	if failed := ApplyTracking(context.Background(), writer, first); len(failed) != 0 {
		t.Fatalf("ApplyTracking: %v", failed)
	}

	second := ReconcileCatalog(items, writer.list(), derive)
	if !second.Empty() {
		t.Fatalf("expected empty plan after apply, got %#v", second)
	}
}

func TestReconcileIgnoredNeverTouched(t *testing.T) {
	entries := []store.Entry{{Hash: "i", Status: store.StatusDownloading, State: "downloading", Ignored: true}}
	plan := ReconcileCatalog(nil, entries, fixedDerive(nil))
	if !plan.Empty() {
		t.Fatalf("ignored absent entry must not be orphaned: %#v", plan)
	}

	items := []torrent.Item{{Hash: "i", Name: "Ignored (2000)", State: "uploading", Progress: 1}}
	plan = ReconcileCatalog(items, entries, fixedDerive(nil))
	if !plan.Empty() {
		t.Fatalf("ignored live entry must not be updated or recreated: %#v", plan)
	}
}

func TestReconcileDuplicateLiveItems(t *testing.T) {
	items := []torrent.Item{
		{Hash: "dup", Name: "Arrival (2016)", State: "uploading"},
		{Hash: "dup", Name: "Arrival (2016)", State: "uploading"},
	}
	plan := ReconcileCatalog(items, nil, fixedDerive(nil))
	if len(plan.Create) != 1 {
		t.Fatalf("expected single create for duplicate hash, got %d", len(plan.Create))
	}
}

func TestApplyTrackingContinuesPastFailedWrite(t *testing.T) {
	writer := newMemoryWriter([]store.Entry{{Hash: "a"}, {Hash: "c"}, {Hash: "b"}})
	writer.failOn = "a"
	plan := Plan{
		Updates: []store.TrackingUpdate{
			{Hash: "a", Status: store.StatusPending},
			{Hash: "c", Status: store.StatusPending},
		},
		Orphan: []string{"b"},
	}
	failed := ApplyTracking(context.Background(), writer, plan)
	if len(failed) != 1 || failed["a"] == nil {
		t.Fatalf("expected only a to fail, got %v", failed)
	}
	if writer.entries["c"].Status != store.StatusPending {
		t.Fatalf("update after the failed row was skipped: %q", writer.entries["c"].Status)
	}
	if writer.entries["b"].Status != store.StatusOrphaned {
		t.Fatalf("orphan after the failed row was skipped: %q", writer.entries["b"].Status)
	}
}

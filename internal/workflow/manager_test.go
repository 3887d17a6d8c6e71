package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"plexmover/internal/catalog"
	"plexmover/internal/config"
	"plexmover/internal/copyengine"
	"plexmover/internal/dispatch"
	"plexmover/internal/store"
	"plexmover/internal/testsupport"
	"plexmover/internal/torrent"
	"plexmover/internal/workflow"
)

type recordingTrigger struct {
	mu     sync.Mutex
	hashes []string
}

func (r *recordingTrigger) trigger(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes = append(r.hashes, hash)
	return nil
}

func (r *recordingTrigger) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hashes...)
}

type countingSweeper struct {
	calls int
}

func (c *countingSweeper) MoveCompleted(context.Context) (int, error) {
	c.calls++
	return 0, nil
}

type harness struct {
	cfg     *config.Config
	store   *store.Store
	client  *testsupport.FakeTorrents
	manager *workflow.Manager
	trigger *recordingTrigger
	sweeper *countingSweeper
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewFakeTorrents()
	trig := &recordingTrigger{}
	rules, manual := dispatch.RulesFromConfig(cfg)
	sweeper := &countingSweeper{}
	mgr := workflow.NewManager(cfg, workflow.Dependencies{
		Store:      st,
		Torrents:   client,
		Copies:     copyengine.New(nil),
		Catalog:    catalog.NewService(cfg, st, nil, nil, nil),
		Dispatcher: dispatch.New(rules, manual, trig.trigger, nil),
		Sweeper:    sweeper,
	}, nil)
	return harness{cfg: cfg, store: st, client: client, manager: mgr, trigger: trig, sweeper: sweeper}
}

func TestSyncCreatesEntriesOnceAndIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.client.Set(
		torrent.Item{Hash: "a", Name: "Heat.1995.1080p", State: "downloading", Progress: 0.3},
		torrent.Item{Hash: "b", Name: "Show.S01E02.720p", State: "downloading"},
	)

	summary, err := h.manager.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if summary.Created != 1 || summary.Items != 2 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	entry, _ := h.store.GetEntry(ctx, "a")
	if entry == nil || entry.Status != store.StatusDownloading || entry.Title != "Heat" {
		t.Fatalf("unexpected entry %#v", entry)
	}
	if series, _ := h.store.GetEntry(ctx, "b"); series != nil {
		t.Fatal("series torrents should not be catalogued")
	}

	again, err := h.manager.SyncNow(ctx)
	if err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}
	if again.Created != 0 || again.Updated != 0 || again.Orphaned != 0 {
		t.Fatalf("second pass should be a no-op, got %#v", again)
	}
}

func TestSyncDispatchesCompletedDownloads(t *testing.T) {
	h := newHarness(t, testsupport.WithFeeds(config.Feed{Name: "main", URL: "https://f", Label: "movies-auto", AutoCopy: true}))
	ctx := context.Background()
	testsupport.MustCreateEntry(t, h.store, store.Entry{Hash: "a", Title: "Heat", Year: "1995", Status: store.StatusDownloading, TorrentName: "Heat (1995)"})
	testsupport.MustCreateEntry(t, h.store, store.Entry{Hash: "b", Title: "Alien", Year: "1979", Status: store.StatusDownloading, TorrentName: "Alien (1979)"})
	h.client.Set(
		torrent.Item{Hash: "a", Name: "Heat (1995)", State: "uploading", Progress: 1, Tags: "movies-auto"},
		torrent.Item{Hash: "b", Name: "Alien (1979)", State: "stalledUP", Progress: 1, Tags: "other"},
	)

	summary, err := h.manager.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if summary.Completed != 2 {
		t.Fatalf("expected two completions, got %#v", summary)
	}
	if calls := h.trigger.calls(); len(calls) != 1 || calls[0] != "a" {
		t.Fatalf("expected trigger for a only, got %v", calls)
	}
	entry, _ := h.store.GetEntry(ctx, "a")
	if entry.Status != store.StatusPending {
		t.Fatalf("expected pending after completion, got %s", entry.Status)
	}

	if _, err := h.manager.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if calls := h.trigger.calls(); len(calls) != 1 {
		t.Fatalf("completion edge should fire once, got %v", calls)
	}
}

func TestSyncOrphansMissingTorrents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.MustCreateEntry(t, h.store, store.Entry{Hash: "gone", Title: "Heat", Status: store.StatusMoved})
	testsupport.MustCreateEntry(t, h.store, store.Entry{Hash: "feed", Title: "Alien", State: store.StateRSS, Status: store.StatusNew})
	testsupport.MustCreateEntry(t, h.store, store.Entry{Hash: "ign", Title: "Jaws", Ignored: true, Status: store.StatusPending})

	summary, err := h.manager.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if summary.Orphaned != 1 {
		t.Fatalf("expected one orphan, got %#v", summary)
	}
	gone, _ := h.store.GetEntry(ctx, "gone")
	if gone.Status != store.StatusOrphaned || gone.State != store.StateOrphaned {
		t.Fatalf("unexpected orphan %#v", gone)
	}
	ign, _ := h.store.GetEntry(ctx, "ign")
	if ign.Status != store.StatusPending {
		t.Fatalf("ignored entry should be untouched, got %s", ign.Status)
	}
}

func TestSyncSurvivesOneUncataloguableItem(t *testing.T) {
	h := newHarness(t, testsupport.WithFeeds(config.Feed{Name: "main", URL: "https://f", Label: "movies-auto", AutoCopy: true}))
	ctx := context.Background()
	testsupport.MustCreateEntry(t, h.store, store.Entry{Hash: "d", Title: "Drive", Year: "2011", Status: store.StatusDownloading, TorrentName: "Drive (2011)"})
	testsupport.MustCreateEntry(t, h.store, store.Entry{Hash: "gone", Title: "Heat", Status: store.StatusPending})
	h.client.Set(
		torrent.Item{Hash: "", Name: "Broken (2000)", State: "downloading"},
		torrent.Item{Hash: "d", Name: "Drive (2011)", State: "uploading", Progress: 1, Tags: "movies-auto"},
	)

	summary, err := h.manager.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if summary.Created != 0 || summary.Orphaned != 1 || summary.Completed != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	d, _ := h.store.GetEntry(ctx, "d")
	if d.Status != store.StatusPending {
		t.Fatalf("expected d pending, got %s", d.Status)
	}
	gone, _ := h.store.GetEntry(ctx, "gone")
	if gone.Status != store.StatusOrphaned {
		t.Fatalf("expected gone orphaned, got %s", gone.Status)
	}
	if calls := h.trigger.calls(); len(calls) != 1 || calls[0] != "d" {
		t.Fatalf("expected trigger for d, got %v", calls)
	}
}

func TestSyncRunsSweepOnlyWhenEnabled(t *testing.T) {
	h := newHarness(t)
	if _, err := h.manager.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if h.sweeper.calls != 0 {
		t.Fatal("sweep should be disabled by default")
	}

	h.cfg.Workflow.EnableScheduler = true
	if _, err := h.manager.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if h.sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", h.sweeper.calls)
	}
}

func TestStatusReportsClientFailure(t *testing.T) {
	h := newHarness(t)
	h.client.Err = errors.New("connection refused")
	if _, err := h.manager.SyncNow(context.Background()); err == nil {
		t.Fatal("expected pass error")
	}
	status := h.manager.Status()
	if status.LastError == "" || len(status.Checks) != 1 || status.Checks[0].Ready {
		t.Fatalf("unexpected status %#v", status)
	}

	h.client.Err = nil
	if _, err := h.manager.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	status = h.manager.Status()
	if status.LastError != "" || status.LastPass == nil || !status.Checks[0].Ready {
		t.Fatalf("expected recovery, got %#v", status)
	}
}

func TestTorrentsDerivesMissingDestination(t *testing.T) {
	h := newHarness(t)
	dest := filepath.Join(h.cfg.Paths.LibraryDir, "Heat (1995)")
	testsupport.MustAppendHistory(t, h.store, "Heat (1995)", store.HistorySuccess, dest)
	h.client.Set(torrent.Item{Hash: "a", Name: "Heat (1995)", State: "uploading", Progress: 1})

	views, err := h.manager.Torrents(context.Background())
	if err != nil || len(views) != 1 {
		t.Fatalf("Torrents = %#v, %v", views, err)
	}
	if views[0].Status != store.StatusMissing || views[0].LastMove == nil {
		t.Fatalf("expected missing status, got %#v", views[0])
	}

	testsupport.WriteFile(t, filepath.Join(dest, "Heat (1995).mkv"), 1)
	views, _ = h.manager.Torrents(context.Background())
	if views[0].Status != store.StatusMoved {
		t.Fatalf("expected moved status, got %s", views[0].Status)
	}
}

func TestStartStopAndTrigger(t *testing.T) {
	h := newHarness(t)
	h.client.Set(torrent.Item{Hash: "a", Name: "Heat.1995", State: "downloading"})
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.manager.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if entry, _ := h.store.GetEntry(context.Background(), "a"); entry != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first pass did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	h.manager.Trigger()
	h.manager.Trigger()
	h.manager.Stop()
	if h.manager.Status().Running {
		t.Fatal("manager should be stopped")
	}
}

package feeds_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"plexmover/internal/config"
	"plexmover/internal/feeds"
	"plexmover/internal/metadata"
	"plexmover/internal/store"
	"plexmover/internal/testsupport"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Releases</title>
    <item>
      <title>Heat.1995.1080p.BluRay</title>
      <link>https://tracker.example/heat</link>
      <description>TMDB: &lt;a href="https://anon.to?https://www.themoviedb.org/movie/949"&gt;949&lt;/a&gt;</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Alien.1979.720p.WEB</title>
      <link>https://tracker.example/alien</link>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestParseExtractsEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries, err := feeds.Parse(strings.NewReader(sampleRSS), "main", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	heat := entries[0]
	if heat.Title != "Heat.1995.1080p.BluRay" || heat.TMDBID != 949 || heat.FeedName != "main" {
		t.Fatalf("unexpected entry %#v", heat)
	}
	if !heat.Published.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published %v", heat.Published)
	}
	if entries[1].TMDBID != 0 {
		t.Fatalf("expected no tmdb id, got %d", entries[1].TMDBID)
	}
}

func TestParseFallsBackToNow(t *testing.T) {
	doc := `<rss version="2.0"><channel><title>x</title><item><title>Heat (1995)</title></item></channel></rss>`
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries, err := feeds.Parse(strings.NewReader(doc), "x", now)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Parse = %#v, %v", entries, err)
	}
	if !entries[0].Published.Equal(now) {
		t.Fatalf("expected fallback to now, got %v", entries[0].Published)
	}
}

func TestFetcherFetchesOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	fetcher := feeds.NewFetcher(5 * time.Second)
	entries, err := fetcher.Fetch(context.Background(), config.Feed{Name: "main", URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	title, count, err := fetcher.Probe(context.Background(), srv.URL)
	if err != nil || title != "Releases" || count != 2 {
		t.Fatalf("Probe = %q, %d, %v", title, count, err)
	}
}

func TestUniqueSortsAndDedupes(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []feeds.Entry{
		{Title: "Heat.1995.720p", Published: base},
		{Title: "Heat.1995.2160p", Published: base.Add(time.Hour)},
		{Title: "Alien.1979.1080p", Published: base.Add(2 * time.Hour)},
	}
	got := feeds.Unique(entries, 30)
	if len(got) != 2 || got[0].Title != "Alien.1979.1080p" || got[1].Title != "Heat.1995.2160p" {
		t.Fatalf("unexpected unique entries %#v", got)
	}
	if limited := feeds.Unique(entries, 1); len(limited) != 1 {
		t.Fatalf("expected limit 1, got %d", len(limited))
	}
}

type staticSource map[string][]feeds.Entry

func (s staticSource) Fetch(_ context.Context, feed config.Feed) ([]feeds.Entry, error) {
	if entries, ok := s[feed.Name]; ok {
		return entries, nil
	}
	return nil, fmt.Errorf("feed %s unavailable", feed.Name)
}

func newService(t *testing.T, src feeds.Source, enricher feeds.Enricher) (*feeds.Service, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithFeeds(
		config.Feed{Name: "main", URL: "https://feeds.example/main", RefreshInterval: 60},
		config.Feed{Name: "broken", URL: "https://feeds.example/broken", RefreshInterval: 120},
	))
	st := testsupport.MustOpenStore(t, cfg)
	return feeds.NewService(cfg, st, enricher, nil, feeds.WithSource(src)), st
}

func TestRefreshImportsNewTitles(t *testing.T) {
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := staticSource{"main": {
		{Title: "Heat.1995.1080p", Link: "https://t/heat", Published: published, FeedName: "main"},
		{Title: "Alien.1979.1080p", Link: "https://t/alien", Published: published, FeedName: "main"},
	}}
	svc, st := newService(t, src, nil)
	ctx := context.Background()

	result, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if result.Added != 2 {
		t.Fatalf("expected 2 added, got %#v", result)
	}

	hash := feeds.PseudoHash("Heat", "1995", published, "https://t/heat")
	entry, _ := st.GetEntry(ctx, hash)
	if entry == nil || entry.State != store.StateRSS || entry.Status != store.StatusNew || entry.Overview != "Imported from RSS" || entry.TorrentName != "Heat.1995.1080p" {
		t.Fatalf("unexpected feed entry %#v", entry)
	}

	again, err := svc.Refresh(ctx)
	if err != nil || again.Added != 0 {
		t.Fatalf("second refresh should add nothing, got %#v, %v", again, err)
	}
}

func TestIngestRespectsIgnoredWatchlistAndExisting(t *testing.T) {
	svc, st := newService(t, staticSource{}, nil)
	ctx := context.Background()
	future := time.Now().Add(48 * time.Hour)
	past := time.Now().Add(-time.Hour)

	testsupport.MustCreateEntry(t, st, store.Entry{Hash: "ign", Title: "Heat", Year: "1995", Ignored: true})
	testsupport.MustCreateEntry(t, st, store.Entry{Hash: "wl", Title: "Alien", Year: "1979", Watchlist: true, WatchlistExpiry: &future})
	testsupport.MustCreateEntry(t, st, store.Entry{Hash: "old", Title: "Ghost", Year: "1990", Watchlist: true, WatchlistExpiry: &past})
	testsupport.MustCreateEntry(t, st, store.Entry{Hash: "vis", Title: "Jaws", Year: "1975"})

	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Ingest(ctx, []feeds.Entry{
		{Title: "Heat.1995.1080p", Link: "a", Published: published},
		{Title: "Alien.1979.1080p", Link: "b", Published: published},
		{Title: "Ghost.1990.1080p", Link: "c", Published: published},
		{Title: "Jaws.1975.1080p", Link: "d", Published: published},
	}, 30)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Added != 0 {
		t.Fatalf("expected nothing added, got %#v", result)
	}

	// The expired watchlist entry is released and then found as a visible duplicate.
	old, _ := st.GetEntry(ctx, "old")
	if old.Watchlist {
		t.Fatal("expired watchlist flag should be cleared")
	}
	active, _ := st.GetEntry(ctx, "wl")
	if !active.Watchlist {
		t.Fatal("active watchlist entry should be kept")
	}
}

type stubEnricher struct {
	resolved int64
}

func (s *stubEnricher) ResolveID(_ context.Context, id int64) *metadata.Record {
	s.resolved = id
	return &metadata.Record{TMDBID: id, Title: "Heat", Year: "1995", Overview: "Cops and robbers."}
}

func (s *stubEnricher) Enrich(_ context.Context, entry *store.Entry, record *metadata.Record) bool {
	if record == nil {
		return false
	}
	entry.Title = record.Title
	entry.Overview = record.Overview
	entry.TMDBID = record.TMDBID
	return true
}

func TestIngestUsesTMDBIDForExactTitle(t *testing.T) {
	enricher := &stubEnricher{}
	svc, st := newService(t, staticSource{}, enricher)
	ctx := context.Background()

	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Ingest(ctx, []feeds.Entry{
		{Title: "Heat.Director.Cut.1080p", Link: "x", Published: published, TMDBID: 949},
	}, 30)
	if err != nil || result.Added != 1 {
		t.Fatalf("Ingest = %#v, %v", result, err)
	}
	if enricher.resolved != 949 {
		t.Fatalf("expected tmdb id 949 to be resolved, got %d", enricher.resolved)
	}
	entry, _ := st.GetEntry(ctx, feeds.PseudoHash("Heat", "1995", published, "x"))
	if entry == nil || entry.TMDBID != 949 || entry.Overview != "Cops and robbers." {
		t.Fatalf("unexpected entry %#v", entry)
	}
}

func TestRefreshWithoutFeeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	svc := feeds.NewService(cfg, st, nil, nil)
	if svc.HasFeeds() {
		t.Fatal("expected no feeds")
	}
	if _, err := svc.Refresh(context.Background()); err != feeds.ErrNoFeeds {
		t.Fatalf("expected ErrNoFeeds, got %v", err)
	}
	if status := svc.Status(); status.HasFeeds {
		t.Fatalf("unexpected status %#v", status)
	}
}

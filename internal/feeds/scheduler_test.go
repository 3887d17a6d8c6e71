package feeds

import (
	"context"
	"sync"
	"testing"
	"time"

	"plexmover/internal/config"
	"plexmover/internal/testsupport"
)

type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingSource) Fetch(_ context.Context, feed config.Feed) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[feed.Name]++
	return nil, nil
}

func TestSchedulerRefreshesOnlyDueFeeds(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFeeds(
		config.Feed{Name: "fast", URL: "https://f/fast", RefreshInterval: 60},
		config.Feed{Name: "slow", URL: "https://f/slow", RefreshInterval: 600},
	))
	st := testsupport.MustOpenStore(t, cfg)
	src := &countingSource{calls: map[string]int{}}

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(cfg, st, nil, nil, WithSource(src), WithClock(func() time.Time { return clock }))
	svc.resetTimers(clock)

	status := svc.Status()
	if !status.HasFeeds || status.NextFeedName != "fast" || status.CountdownSeconds != 60 {
		t.Fatalf("unexpected initial status %#v", status)
	}

	clock = clock.Add(30 * time.Second)
	svc.tick(context.Background())
	if src.calls["fast"] != 0 {
		t.Fatal("no feed should be due after 30s")
	}

	clock = clock.Add(31 * time.Second)
	svc.tick(context.Background())
	if src.calls["fast"] != 1 || src.calls["slow"] != 1 {
		t.Fatalf("refresh should fetch every feed once, got %#v", src.calls)
	}
	status = svc.Status()
	if status.NextFeedName != "fast" || status.CountdownSeconds != 60 {
		t.Fatalf("fast feed timer should restart, got %#v", status)
	}
}

func TestDisabledFeedsAreExcluded(t *testing.T) {
	off := false
	cfg := testsupport.NewConfig(t, testsupport.WithFeeds(
		config.Feed{Name: "off", URL: "https://f/off", Enabled: &off},
	))
	st := testsupport.MustOpenStore(t, cfg)
	svc := NewService(cfg, st, nil, nil)
	if svc.HasFeeds() {
		t.Fatal("disabled feed should not be scheduled")
	}
}

package feeds

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"plexmover/internal/config"
	"plexmover/internal/logging"
	"plexmover/internal/services"
	"plexmover/internal/store"
)

// ErrNoFeeds is returned by Refresh when no enabled feed is configured.
var ErrNoFeeds = errors.New("no RSS feeds configured")

// Source fetches a single feed.
type Source interface {
	Fetch(ctx context.Context, feed config.Feed) ([]Entry, error)
}

// Service ties fetching, ingestion and the refresh schedule together.
type Service struct {
	feeds    []config.Feed
	check    time.Duration
	source   Source
	store    *store.Store
	enricher Enricher
	logger   *slog.Logger
	now      func() time.Time

	refreshMu sync.Mutex

	mu        sync.Mutex
	lastFetch map[string]time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithSource replaces the network fetcher.
func WithSource(src Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a feed service from cfg. enricher may be nil.
func NewService(cfg *config.Config, st *store.Store, enricher Enricher, logger *slog.Logger, opts ...Option) *Service {
	var enabled []config.Feed
	for _, feed := range cfg.Feeds {
		if feed.IsEnabled() && strings.TrimSpace(feed.URL) != "" {
			enabled = append(enabled, feed)
		}
	}
	check := time.Duration(cfg.Workflow.FeedCheckSeconds) * time.Second
	if check <= 0 {
		check = 10 * time.Second
	}
	s := &Service{
		feeds:     enabled,
		check:     check,
		source:    NewFetcher(30 * time.Second),
		store:     st,
		enricher:  enricher,
		logger:    logging.NewComponentLogger(logger, "feeds"),
		now:       time.Now,
		lastFetch: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasFeeds reports whether any enabled feed is configured.
func (s *Service) HasFeeds() bool {
	return len(s.feeds) > 0
}

// Refresh fetches every enabled feed and ingests the merged entries. A feed
// that fails to fetch is logged and skipped.
func (s *Service) Refresh(ctx context.Context) (Result, error) {
	if len(s.feeds) == 0 {
		return Result{}, ErrNoFeeds
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	var all []Entry
	for _, feed := range s.feeds {
		entries, err := s.source.Fetch(ctx, feed)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			logging.WarnWithContext(s.logger, "feed fetch failed", "feed_fetch_failed",
				logging.String(logging.FieldSource, feed.Name),
				logging.String("url", feed.URL),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the feed url"),
			)
			continue
		}
		s.logger.Debug("feed fetched", logging.String(logging.FieldSource, feed.Name), logging.Int("entries", len(entries)))
		all = append(all, entries...)
	}
	return s.Ingest(ctx, all, DefaultLimit)
}

// Status describes the next scheduled refresh.
type Status struct {
	HasFeeds         bool   `json:"has_feeds"`
	NextFeedName     string `json:"next_feed_name,omitempty"`
	NextFeedURL      string `json:"next_feed_url,omitempty"`
	CountdownSeconds int    `json:"countdown_seconds"`
}

// Status reports the feed due soonest and the seconds until it is due.
func (s *Service) Status() Status {
	if len(s.feeds) == 0 {
		return Status{}
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		next *config.Feed
		best time.Duration
	)
	for i := range s.feeds {
		feed := &s.feeds[i]
		remaining := s.untilDueLocked(*feed, now)
		if next == nil || remaining < best {
			next, best = feed, remaining
		}
	}
	return Status{
		HasFeeds:         true,
		NextFeedName:     next.Name,
		NextFeedURL:      next.URL,
		CountdownSeconds: int(best / time.Second),
	}
}

func (s *Service) untilDueLocked(feed config.Feed, now time.Time) time.Duration {
	last, ok := s.lastFetch[feed.URL]
	if !ok {
		last = now
	}
	remaining := last.Add(refreshInterval(feed)).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func refreshInterval(feed config.Feed) time.Duration {
	if feed.RefreshInterval <= 0 {
		return 300 * time.Second
	}
	return time.Duration(feed.RefreshInterval) * time.Second
}

// Run refreshes due feeds every check interval until ctx is cancelled. Timers
// start at launch so no feed is fetched immediately.
func (s *Service) Run(ctx context.Context) {
	if len(s.feeds) == 0 {
		return
	}
	s.resetTimers(s.now())
	s.logger.Info("feed scheduler started", logging.Int("feeds", len(s.feeds)), logging.Duration("check", s.check))

	ticker := time.NewTicker(s.check)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) resetTimers(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, feed := range s.feeds {
		if _, ok := s.lastFetch[feed.URL]; !ok {
			s.lastFetch[feed.URL] = now
		}
	}
}

// dueFeeds returns the feeds whose interval elapsed and restamps them.
func (s *Service) dueFeeds(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []string
	for _, feed := range s.feeds {
		last, ok := s.lastFetch[feed.URL]
		if !ok {
			last = now
			s.lastFetch[feed.URL] = now
		}
		if now.Sub(last) >= refreshInterval(feed) {
			due = append(due, feed.Name)
			s.lastFetch[feed.URL] = now
		}
	}
	return due
}

func (s *Service) tick(ctx context.Context) {
	due := s.dueFeeds(s.now())
	if len(due) == 0 {
		return
	}
	ctx = services.WithComponent(ctx, "feeds")
	s.logger.Info("refreshing feeds", logging.String("due", strings.Join(due, ",")))
	result, err := s.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(s.logger, "scheduled feed refresh failed", "feed_refresh_failed", logging.Error(err))
		}
		return
	}
	s.logger.Info("feed refresh complete", logging.Int("added", result.Added))
}

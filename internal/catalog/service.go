package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"plexmover/internal/config"
	"plexmover/internal/logging"
	"plexmover/internal/metadata"
	"plexmover/internal/notifications"
	"plexmover/internal/reconcile"
	"plexmover/internal/services"
	"plexmover/internal/store"
	"plexmover/internal/textutil"
)

// MetadataSource resolves TMDB metadata and artwork.
type MetadataSource interface {
	Lookup(ctx context.Context, title, year string) (*metadata.Record, error)
	LookupByID(ctx context.Context, movieID int64) (*metadata.Record, error)
	FetchArtwork(ctx context.Context, record *metadata.Record, hash, dir string, force bool) (metadata.Artwork, error)
}

// MetadataFromConfig builds a TMDB source, or returns nil when no API key is
// configured.
func MetadataFromConfig(cfg *config.Config) MetadataSource {
	if cfg == nil || strings.TrimSpace(cfg.TMDB.APIKey) == "" {
		return nil
	}
	client, err := metadata.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, metadata.WithImageBaseURL(cfg.TMDB.ImageBaseURL))
	if err != nil {
		return nil
	}
	return client
}

// Service manages catalog entries.
type Service struct {
	cfg      *config.Config
	store    *store.Store
	meta     MetadataSource
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a catalog service. meta and notifier may be nil.
func NewService(cfg *config.Config, st *store.Store, meta MetadataSource, notifier notifications.Service, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    st,
		meta:     meta,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "catalog"),
		now:      time.Now,
	}
}

// Create inserts entries for torrents first seen by a reconciliation pass.
// Metadata failures degrade to a bare entry built from the release name. A
// failed insert is logged and skipped; the joined failures are returned after
// every item has been attempted.
func (s *Service) Create(ctx context.Context, items []reconcile.NewItem) (int, error) {
	created := 0
	var errs []error
	for _, ni := range items {
		entry, err := s.CreateFromItem(ctx, ni)
		if err != nil {
			logger := logging.WithContext(services.WithHash(ctx, ni.Item.Hash), s.logger)
			logging.WarnWithContext(logger, "catalog entry creation failed", "catalog_create_failed",
				logging.String("torrent", ni.Item.Name),
				logging.Error(err),
			)
			errs = append(errs, fmt.Errorf("create %q: %w", ni.Item.Name, err))
			continue
		}
		if entry != nil {
			created++
		}
	}
	return created, errors.Join(errs...)
}

// CreateFromItem inserts one entry for a new torrent and returns it.
func (s *Service) CreateFromItem(ctx context.Context, ni reconcile.NewItem) (*store.Entry, error) {
	item := ni.Item
	logger := logging.WithContext(services.WithHash(ctx, item.Hash), s.logger)

	title, year := textutil.CleanTorrentName(item.Name)
	if title == "" {
		title = item.Name
	}
	entry := &store.Entry{
		Hash:        item.Hash,
		Title:       title,
		Year:        year,
		State:       item.State,
		Progress:    item.Progress,
		Size:        item.Size,
		Status:      ni.Status,
		TorrentName: item.Name,
	}
	s.Enrich(ctx, entry, nil)
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	logger.Info("catalog entry created",
		logging.String("title", entry.Title),
		logging.String("year", entry.Year),
		logging.String("status", string(entry.Status)),
		logging.Bool("tmdb", entry.TMDBID != 0),
	)
	notifications.PublishAsync(s.notifier, s.logger, notifications.EventNewMovie, notifications.Payload{
		"title": entry.Title,
		"year":  entry.Year,
	})
	return entry, nil
}

// Enrich fills entry with TMDB metadata and artwork. A nil record is resolved
// by searching entry's title and year. It reports whether metadata was applied.
func (s *Service) Enrich(ctx context.Context, entry *store.Entry, record *metadata.Record) bool {
	if s.meta == nil {
		return false
	}
	logger := logging.WithContext(services.WithHash(ctx, entry.Hash), s.logger)
	if record == nil {
		record = s.lookup(ctx, logger, entry.Title, entry.Year)
	}
	if record == nil {
		return false
	}
	s.applyRecord(ctx, logger, entry, record, false)
	return true
}

// ResolveID fetches the TMDB record for movieID. Failures are logged and
// reported as nil.
func (s *Service) ResolveID(ctx context.Context, movieID int64) *metadata.Record {
	if s.meta == nil || movieID <= 0 {
		return nil
	}
	record, err := s.meta.LookupByID(ctx, movieID)
	if err != nil {
		logging.WarnWithContext(s.logger, "tmdb id lookup failed", "tmdb_lookup_failed",
			logging.Int64("tmdb_id", movieID),
			logging.Error(err),
		)
		return nil
	}
	return record
}

func (s *Service) lookup(ctx context.Context, logger *slog.Logger, title, year string) *metadata.Record {
	if s.meta == nil || textutil.IsSeries(title) {
		return nil
	}
	record, err := s.meta.Lookup(ctx, title, year)
	if err != nil {
		logging.WarnWithContext(logger, "tmdb lookup failed", "tmdb_lookup_failed",
			logging.String("title", title),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check tmdb.api_key and network access"),
			logging.String(logging.FieldImpact, "entry created without metadata"),
		)
		return nil
	}
	if record == nil {
		logger.Info("no tmdb match", logging.String("title", title), logging.String("year", year))
	}
	return record
}

func (s *Service) applyRecord(ctx context.Context, logger *slog.Logger, entry *store.Entry, record *metadata.Record, force bool) {
	entry.Title = record.Title
	if record.Year != "" {
		entry.Year = record.Year
	}
	entry.Overview = record.Overview
	entry.Runtime = record.Runtime
	entry.Genres = record.Genres
	entry.VoteAverage = record.VoteAverage
	entry.VoteCount = record.VoteCount
	entry.Cast = record.Cast
	entry.Crew = record.Crew
	entry.IMDbID = record.IMDbID
	entry.TMDBID = record.TMDBID
	now := s.now().UTC()
	entry.MetadataUpdatedAt = &now

	art, err := s.meta.FetchArtwork(ctx, record, entry.Hash, s.cfg.PosterDir(), force)
	if err != nil {
		logging.WarnWithContext(logger, "artwork download failed", "artwork_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "entry shown without some artwork"),
		)
	}
	if art.Poster != "" {
		entry.PosterPath = art.Poster
	}
	if art.Backdrop != "" {
		entry.BackdropPath = art.Backdrop
	}
}

// Identify replaces an entry's metadata with the given TMDB movie.
func (s *Service) Identify(ctx context.Context, hash string, tmdbID int64) (*store.Entry, error) {
	if s.meta == nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "identify", "tmdb is not configured", nil)
	}
	if tmdbID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "catalog", "identify", "tmdb id must be positive", nil)
	}
	entry, err := s.mustEntry(ctx, hash)
	if err != nil {
		return nil, err
	}
	record, err := s.meta.LookupByID(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(services.WithHash(ctx, hash), s.logger)
	s.applyRecord(ctx, logger, entry, record, true)
	if err := s.store.UpsertEntry(ctx, entry); err != nil {
		return nil, err
	}
	logger.Info("entry identified", logging.Int64("tmdb_id", tmdbID), logging.String("title", entry.Title))
	return entry, nil
}

func (s *Service) mustEntry(ctx context.Context, hash string) (*store.Entry, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "lookup", "hash required", nil)
	}
	entry, err := s.store.GetEntry(ctx, hash)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "lookup", "Movie not found", nil)
	}
	return entry, nil
}

// RemoveEntry drops the move history for the entry's torrent and its cached
// artwork. With ignore the row is kept and flagged so it never returns;
// otherwise it is deleted and may be recreated by the next poll.
func (s *Service) RemoveEntry(ctx context.Context, hash string, ignore bool) error {
	entry, err := s.mustEntry(ctx, hash)
	if err != nil {
		return err
	}
	name := entry.TorrentName
	if name == "" {
		name = entry.Title
	}
	if _, err := s.store.DeleteHistory(ctx, name); err != nil {
		return err
	}
	if err := metadata.RemoveArtwork(s.cfg.PosterDir(), entry.PosterPath, entry.BackdropPath); err != nil {
		logging.WarnWithContext(s.logger, "artwork cleanup failed", "artwork_cleanup_failed",
			logging.String(logging.FieldHash, hash),
			logging.Error(err),
		)
	}
	if ignore {
		if _, err := s.store.SetIgnored(ctx, hash, true); err != nil {
			return err
		}
	} else if _, err := s.store.DeleteEntry(ctx, hash); err != nil {
		return err
	}
	s.logger.Info("catalog entry removed",
		logging.String(logging.FieldHash, hash),
		logging.String("title", entry.Title),
		logging.Bool("ignored", ignore),
	)
	return nil
}

// ErrNotIgnored is returned by Unignore for entries that are not ignored.
var ErrNotIgnored = errors.New("movie is not ignored")

// Unignore clears the ignored flag of one entry.
func (s *Service) Unignore(ctx context.Context, hash string) error {
	entry, err := s.mustEntry(ctx, hash)
	if err != nil {
		return err
	}
	if !entry.Ignored {
		return ErrNotIgnored
	}
	_, err = s.store.SetIgnored(ctx, hash, false)
	return err
}

// ResetIgnored clears every ignored flag and returns how many were cleared.
func (s *Service) ResetIgnored(ctx context.Context) (int64, error) {
	n, err := s.store.ResetIgnored(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("ignored entries reset", logging.Int64("count", n))
	return n, nil
}

// ListIgnored returns ignored entries.
func (s *Service) ListIgnored(ctx context.Context) ([]store.Entry, error) {
	return s.store.ListIgnored(ctx)
}

// DefaultWatchlistDays is used when AddToWatchlist receives a non-positive duration.
const DefaultWatchlistDays = 30

// WatchlistItem is a watchlisted entry with the whole days left before it expires.
type WatchlistItem struct {
	store.Entry
	DaysRemaining int `json:"days_remaining"`
}

// AddToWatchlist watchlists an entry for days and clears its ignored flag.
func (s *Service) AddToWatchlist(ctx context.Context, hash string, days int) (time.Time, error) {
	if _, err := s.mustEntry(ctx, hash); err != nil {
		return time.Time{}, err
	}
	if days <= 0 {
		days = DefaultWatchlistDays
	}
	expiry := s.now().UTC().Add(time.Duration(days) * 24 * time.Hour)
	if _, err := s.store.SetWatchlist(ctx, hash, expiry); err != nil {
		return time.Time{}, err
	}
	s.logger.Info("added to watchlist", logging.String(logging.FieldHash, hash), logging.Int("days", days))
	return expiry, nil
}

// RemoveFromWatchlist takes an entry off the watchlist. An entry that is not
// watchlisted reports ErrNotFound.
func (s *Service) RemoveFromWatchlist(ctx context.Context, hash string) error {
	ok, err := s.store.ClearWatchlist(ctx, hash)
	if err != nil {
		return err
	}
	if !ok {
		return services.Wrap(services.ErrNotFound, "catalog", "watchlist", "Movie not on watchlist", nil)
	}
	return nil
}

// ListWatchlist returns watchlisted entries with days remaining, floored at zero.
func (s *Service) ListWatchlist(ctx context.Context) ([]WatchlistItem, error) {
	entries, err := s.store.ListWatchlist(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	items := make([]WatchlistItem, 0, len(entries))
	for _, entry := range entries {
		item := WatchlistItem{Entry: entry}
		if entry.WatchlistExpiry != nil {
			item.DaysRemaining = max(0, int(entry.WatchlistExpiry.Sub(now).Hours()/24))
		}
		items = append(items, item)
	}
	return items, nil
}

// ClearFeedEntries deletes feed-only entries.
func (s *Service) ClearFeedEntries(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteFeedEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear feed entries: %w", err)
	}
	s.logger.Info("feed entries cleared", logging.Int64("count", n))
	return n, nil
}

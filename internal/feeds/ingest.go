package feeds

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"plexmover/internal/logging"
	"plexmover/internal/metadata"
	"plexmover/internal/store"
	"plexmover/internal/textutil"
)

// DefaultLimit caps the number of unique entries considered per refresh.
const DefaultLimit = 30

// feedOverview marks entries created without TMDB metadata.
const feedOverview = "Imported from RSS"

// Result summarizes one ingest run.
type Result struct {
	Added   int      `json:"added"`
	Movies  []string `json:"movies"`
	Message string   `json:"message"`
}

// Enricher resolves TMDB metadata for new entries.
type Enricher interface {
	ResolveID(ctx context.Context, movieID int64) *metadata.Record
	Enrich(ctx context.Context, entry *store.Entry, record *metadata.Record) bool
}

// Unique sorts entries newest first and keeps the first entry per
// title/year key, stopping once limit entries are kept.
func Unique(entries []Entry, limit int) []Entry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})
	seen := make(map[string]struct{}, len(sorted))
	out := make([]Entry, 0, min(limit, len(sorted)))
	for _, entry := range sorted {
		title, year := textutil.CleanTorrentName(entry.Title)
		key := textutil.DedupeKey(title, year)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, entry)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// PseudoHash derives the catalog key for a feed entry.
func PseudoHash(title, year string, published time.Time, link string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%s_%s", title, year, published.Format(time.RFC3339), link)))
	return hex.EncodeToString(sum[:])
}

// Ingest inserts feed-only catalog entries for new titles.
func (s *Service) Ingest(ctx context.Context, entries []Entry, limit int) (Result, error) {
	unique := Unique(entries, limit)
	s.logger.Info("processing feed entries", logging.Int("unique", len(unique)), logging.Int("fetched", len(entries)))

	result := Result{Movies: []string{}}
	for _, entry := range unique {
		added, err := s.ingestOne(ctx, entry)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logging.WarnWithContext(s.logger, "feed entry import failed", "feed_entry_failed",
				logging.String("title", entry.Title),
				logging.String(logging.FieldSource, entry.FeedName),
				logging.Error(err),
			)
			continue
		}
		if added {
			result.Added++
			result.Movies = append(result.Movies, entry.Title)
		}
	}
	result.Message = fmt.Sprintf("Added %d new movies from RSS", result.Added)
	return result, nil
}

func (s *Service) ingestOne(ctx context.Context, entry Entry) (bool, error) {
	var record *metadata.Record
	var title, year string
	if s.enricher != nil && entry.TMDBID > 0 {
		if record = s.enricher.ResolveID(ctx, entry.TMDBID); record != nil {
			title, year = record.Title, record.Year
		}
	}
	if title == "" {
		title, year = textutil.CleanTorrentName(entry.Title)
	}
	logger := s.logger.With(logging.String("title", title), logging.String("year", year))

	hash := PseudoHash(title, year, entry.Published, entry.Link)
	existing, err := s.store.GetEntry(ctx, hash)
	if err != nil {
		return false, err
	}
	if existing != nil {
		logger.Debug("feed entry already imported")
		return false, nil
	}

	ignored, err := s.store.FindByTitle(ctx, title, year, store.TitleIgnored)
	if err != nil {
		return false, err
	}
	if ignored != nil {
		logger.Info("title is ignored; skipping feed entry")
		return false, nil
	}

	watched, err := s.store.FindByTitle(ctx, title, year, store.TitleWatchlisted)
	if err != nil {
		return false, err
	}
	if watched != nil {
		if watched.WatchlistExpiry == nil || s.now().Before(*watched.WatchlistExpiry) {
			logger.Info("title is watchlisted; keeping on watchlist")
			return false, nil
		}
		logger.Info("watchlist expired; returning title to the catalog")
		if _, err := s.store.ClearWatchlist(ctx, watched.Hash); err != nil {
			return false, err
		}
	}

	visible, err := s.store.FindByTitle(ctx, title, year, store.TitleVisible)
	if err != nil {
		return false, err
	}
	if visible != nil {
		logger.Info("title already in catalog; skipping feed entry", logging.String(logging.FieldHash, visible.Hash))
		return false, nil
	}

	created := &store.Entry{
		Hash:        hash,
		Title:       title,
		Year:        year,
		State:       store.StateRSS,
		Status:      store.StatusNew,
		TorrentName: entry.Title,
	}
	if s.enricher == nil || !s.enricher.Enrich(ctx, created, record) {
		created.Overview = feedOverview
		now := s.now().UTC()
		created.MetadataUpdatedAt = &now
	}
	if err := s.store.CreateEntry(ctx, created); err != nil {
		return false, err
	}
	logger.Info("feed entry imported",
		logging.String(logging.FieldHash, hash),
		logging.String(logging.FieldSource, entry.FeedName),
	)
	return true, nil
}

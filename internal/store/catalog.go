package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetEntry fetches a catalog entry by content hash.
func (s *Store) GetEntry(ctx context.Context, hash string) (*Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+entryColumns+` FROM movies WHERE torrent_hash = ?`, hash)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns every catalog entry, newest first.
func (s *Store) ListEntries(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM movies ORDER BY added_at DESC, id DESC`)
}

// ListIgnored returns ignored entries, newest first.
func (s *Store) ListIgnored(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM movies WHERE ignored = 1 ORDER BY added_at DESC, id DESC`)
}

// ListWatchlist returns watchlisted entries ordered by expiry.
func (s *Store) ListWatchlist(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM movies WHERE watchlist = 1 ORDER BY watchlist_expiry, id`)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// CreateEntry inserts a new catalog entry. The hash must be unique.
func (s *Store) CreateEntry(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	if strings.TrimSpace(entry.Hash) == "" {
		return errors.New("entry requires a hash")
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	args, err := entryArgs(entry)
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO movies (
            torrent_hash, title, year, poster_path, backdrop_path, overview, runtime,
            genres_json, state, progress, size, added_at, status, cast_json, crew_json,
            vote_average, vote_count, imdb_id, tmdb_id, metadata_updated_at, ignored,
            torrent_name, watchlist, watchlist_expiry
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// UpsertEntry inserts entry or replaces every column of the existing row with
// the same hash. AddedAt of an existing row is preserved.
func (s *Store) UpsertEntry(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	if strings.TrimSpace(entry.Hash) == "" {
		return errors.New("entry requires a hash")
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	args, err := entryArgs(entry)
	if err != nil {
		return err
	}
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO movies (
            torrent_hash, title, year, poster_path, backdrop_path, overview, runtime,
            genres_json, state, progress, size, added_at, status, cast_json, crew_json,
            vote_average, vote_count, imdb_id, tmdb_id, metadata_updated_at, ignored,
            torrent_name, watchlist, watchlist_expiry
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(torrent_hash) DO UPDATE SET
            title = excluded.title, year = excluded.year, poster_path = excluded.poster_path,
            backdrop_path = excluded.backdrop_path, overview = excluded.overview,
            runtime = excluded.runtime, genres_json = excluded.genres_json, state = excluded.state,
            progress = excluded.progress, size = excluded.size, status = excluded.status,
            cast_json = excluded.cast_json, crew_json = excluded.crew_json,
            vote_average = excluded.vote_average, vote_count = excluded.vote_count,
            imdb_id = excluded.imdb_id, tmdb_id = excluded.tmdb_id,
            metadata_updated_at = excluded.metadata_updated_at, ignored = excluded.ignored,
            torrent_name = excluded.torrent_name, watchlist = excluded.watchlist,
            watchlist_expiry = excluded.watchlist_expiry`,
		args...,
	); err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func entryArgs(entry *Entry) ([]any, error) {
	genres, err := encodeJSON(entry.Genres)
	if err != nil {
		return nil, fmt.Errorf("encode genres: %w", err)
	}
	cast, err := encodeJSON(entry.Cast)
	if err != nil {
		return nil, fmt.Errorf("encode cast: %w", err)
	}
	crew, err := encodeJSON(entry.Crew)
	if err != nil {
		return nil, fmt.Errorf("encode crew: %w", err)
	}
	return []any{
		entry.Hash,
		entry.Title,
		nullableString(entry.Year),
		nullableString(entry.PosterPath),
		nullableString(entry.BackdropPath),
		nullableString(entry.Overview),
		nullableInt(int64(entry.Runtime)),
		genres,
		nullableString(entry.State),
		entry.Progress,
		entry.Size,
		formatTime(entry.AddedAt),
		string(entry.Status),
		cast,
		crew,
		entry.VoteAverage,
		entry.VoteCount,
		nullableString(entry.IMDbID),
		nullableInt(entry.TMDBID),
		nullableTime(entry.MetadataUpdatedAt),
		boolToInt(entry.Ignored),
		nullableString(entry.TorrentName),
		boolToInt(entry.Watchlist),
		nullableTime(entry.WatchlistExpiry),
	}, nil
}

// UpdateEntryTracking refreshes the live-tracking columns of a non-ignored
// entry. Ignored rows are left untouched.
func (s *Store) UpdateEntryTracking(ctx context.Context, update TrackingUpdate) error {
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE movies
         SET status = ?, progress = ?, state = ?, size = ?,
             torrent_name = COALESCE(NULLIF(torrent_name, ''), ?)
         WHERE torrent_hash = ? AND ignored = 0`,
		string(update.Status),
		update.Progress,
		nullableString(update.State),
		update.Size,
		nullableString(update.TorrentName),
		update.Hash,
	); err != nil {
		return fmt.Errorf("update entry tracking: %w", err)
	}
	return nil
}

// MarkOrphaned flags a non-ignored entry whose torrent vanished from the client.
func (s *Store) MarkOrphaned(ctx context.Context, hash string) error {
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE movies SET status = ?, progress = 0, state = ? WHERE torrent_hash = ? AND ignored = 0`,
		string(StatusOrphaned),
		StateOrphaned,
		hash,
	); err != nil {
		return fmt.Errorf("mark orphaned: %w", err)
	}
	return nil
}

// SetIgnored toggles the sticky ignored flag. It reports false when no entry
// matches hash.
func (s *Store) SetIgnored(ctx context.Context, hash string, ignored bool) (bool, error) {
	res, err := s.execWithRetry(ctx, `UPDATE movies SET ignored = ? WHERE torrent_hash = ?`, boolToInt(ignored), hash)
	if err != nil {
		return false, fmt.Errorf("set ignored: %w", err)
	}
	return rowsAffected(res) > 0, nil
}

// ResetIgnored clears the ignored flag on every entry and returns the count.
func (s *Store) ResetIgnored(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `UPDATE movies SET ignored = 0 WHERE ignored = 1`)
	if err != nil {
		return 0, fmt.Errorf("reset ignored: %w", err)
	}
	return rowsAffected(res), nil
}

// DeleteEntry hard-deletes an entry. It reports false when nothing matched.
func (s *Store) DeleteEntry(ctx context.Context, hash string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM movies WHERE torrent_hash = ?`, hash)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return rowsAffected(res) > 0, nil
}

// SetWatchlist places an entry on the watchlist until expiry. Watchlisting
// clears the ignored flag.
func (s *Store) SetWatchlist(ctx context.Context, hash string, expiry time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE movies SET watchlist = 1, watchlist_expiry = ?, ignored = 0 WHERE torrent_hash = ?`,
		formatTime(expiry),
		hash,
	)
	if err != nil {
		return false, fmt.Errorf("set watchlist: %w", err)
	}
	return rowsAffected(res) > 0, nil
}

// ClearWatchlist removes an entry from the watchlist.
func (s *Store) ClearWatchlist(ctx context.Context, hash string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE movies SET watchlist = 0, watchlist_expiry = NULL WHERE torrent_hash = ? AND watchlist = 1`,
		hash,
	)
	if err != nil {
		return false, fmt.Errorf("clear watchlist: %w", err)
	}
	return rowsAffected(res) > 0, nil
}

// FindByTitle returns the first entry with an exact title match within scope.
// A blank year matches any year.
func (s *Store) FindByTitle(ctx context.Context, title, year string, scope TitleScope) (*Entry, error) {
	var clauses []string
	args := []any{title}
	clauses = append(clauses, "title = ?")
	if year = strings.TrimSpace(year); year != "" {
		clauses = append(clauses, "year = ?")
		args = append(args, year)
	}
	switch scope {
	case TitleIgnored:
		clauses = append(clauses, "ignored = 1")
	case TitleWatchlisted:
		clauses = append(clauses, "watchlist = 1")
	case TitleVisible:
		clauses = append(clauses, "ignored = 0", "watchlist = 0")
	}
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+entryColumns+` FROM movies WHERE `+strings.Join(clauses, " AND ")+` ORDER BY id LIMIT 1`,
		args...,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by title: %w", err)
	}
	return entry, nil
}

// DeleteFeedEntries removes entries ingested from feeds that never became a
// real torrent. Ignored entries survive so the feed cannot re-add them.
func (s *Store) DeleteFeedEntries(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM movies WHERE (state = ? OR status = ?) AND ignored = 0`,
		StateRSS,
		string(StatusRSSNew),
	)
	if err != nil {
		return 0, fmt.Errorf("delete feed entries: %w", err)
	}
	return rowsAffected(res), nil
}

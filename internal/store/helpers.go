package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const entryColumns = "id, torrent_hash, title, year, poster_path, backdrop_path, overview, runtime, genres_json, state, progress, size, added_at, status, cast_json, crew_json, vote_average, vote_count, imdb_id, tmdb_id, metadata_updated_at, ignored, torrent_name, watchlist, watchlist_expiry"

const historyColumns = "id, torrent_name, source_path, dest_path, status, message, timestamp"

type rowScanner interface{ Scan(dest ...any) error }

func scanEntry(scanner rowScanner) (*Entry, error) {
	var (
		id           int64
		hash         string
		title        string
		year         sql.NullString
		poster       sql.NullString
		backdrop     sql.NullString
		overview     sql.NullString
		runtime      sql.NullInt64
		genresRaw    sql.NullString
		state        sql.NullString
		progress     sql.NullFloat64
		size         sql.NullInt64
		addedRaw     sql.NullString
		status       sql.NullString
		castRaw      sql.NullString
		crewRaw      sql.NullString
		voteAverage  sql.NullFloat64
		voteCount    sql.NullInt64
		imdbID       sql.NullString
		tmdbID       sql.NullInt64
		metadataRaw  sql.NullString
		ignored      sql.NullInt64
		torrentName  sql.NullString
		watchlist    sql.NullInt64
		watchlistRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&hash,
		&title,
		&year,
		&poster,
		&backdrop,
		&overview,
		&runtime,
		&genresRaw,
		&state,
		&progress,
		&size,
		&addedRaw,
		&status,
		&castRaw,
		&crewRaw,
		&voteAverage,
		&voteCount,
		&imdbID,
		&tmdbID,
		&metadataRaw,
		&ignored,
		&torrentName,
		&watchlist,
		&watchlistRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:           id,
		Hash:         hash,
		Title:        title,
		Year:         year.String,
		PosterPath:   poster.String,
		BackdropPath: backdrop.String,
		Overview:     overview.String,
		Runtime:      int(runtime.Int64),
		State:        state.String,
		Progress:     progress.Float64,
		Size:         size.Int64,
		Status:       Status(status.String),
		VoteAverage:  voteAverage.Float64,
		VoteCount:    int(voteCount.Int64),
		IMDbID:       imdbID.String,
		TMDBID:       tmdbID.Int64,
		Ignored:      ignored.Int64 != 0,
		TorrentName:  torrentName.String,
		Watchlist:    watchlist.Int64 != 0,
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	decodeJSON(genresRaw, &entry.Genres)
	decodeJSON(castRaw, &entry.Cast)
	decodeJSON(crewRaw, &entry.Crew)

	if added, err := parseTimeString(addedRaw.String); err == nil {
		entry.AddedAt = added
	}
	if metadataRaw.Valid {
		if ts, err := parseTimeString(metadataRaw.String); err == nil {
			entry.MetadataUpdatedAt = &ts
		}
	}
	if watchlistRaw.Valid {
		if ts, err := parseTimeString(watchlistRaw.String); err == nil {
			entry.WatchlistExpiry = &ts
		}
	}
	return entry, nil
}

func scanHistory(scanner rowScanner) (*HistoryRecord, error) {
	var (
		id      int64
		name    string
		source  sql.NullString
		dest    sql.NullString
		status  string
		message sql.NullString
		tsRaw   sql.NullString
	)
	if err := scanner.Scan(&id, &name, &source, &dest, &status, &message, &tsRaw); err != nil {
		return nil, err
	}
	rec := &HistoryRecord{
		ID:          id,
		TorrentName: name,
		SourcePath:  source.String,
		DestPath:    dest.String,
		Status:      HistoryStatus(status),
		Message:     message.String,
	}
	if ts, err := parseTimeString(tsRaw.String); err == nil {
		rec.Timestamp = ts
	}
	return rec, nil
}

func decodeJSON(raw sql.NullString, dst any) {
	if !raw.Valid || raw.String == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw.String), dst)
}

func encodeJSON[T any](values []T) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort
// lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

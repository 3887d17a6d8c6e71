package store

import "time"

// Status is the canonical display status of a catalog entry.
type Status string

const (
	StatusNew           Status = "new"
	StatusDownloading   Status = "downloading"
	StatusPending       Status = "pending"
	StatusCopying       Status = "copying"
	StatusMoved         Status = "moved"
	StatusMovedManually Status = "moved_manually"
	StatusMissing       Status = "missing"
	StatusError         Status = "error"
	StatusSkipped       Status = "skipped"
	StatusOrphaned      Status = "orphaned"
	StatusRSSNew        Status = "rss_new"
)

// StateRSS marks catalog entries ingested from a feed rather than the
// torrent client. StateOrphaned replaces the remote state of entries whose
// torrent disappeared.
const (
	StateRSS      = "rss"
	StateOrphaned = "orphaned"
)

// HistoryStatus is the outcome recorded for a move attempt.
type HistoryStatus string

const (
	HistorySuccess HistoryStatus = "success"
	HistorySkipped HistoryStatus = "skipped"
	HistoryError   HistoryStatus = "error"
	HistoryManual  HistoryStatus = "manual"
)

// HistoryRecord is one append-only move-ledger row.
type HistoryRecord struct {
	ID          int64         `json:"id"`
	TorrentName string        `json:"torrent_name"`
	SourcePath  string        `json:"source_path"`
	DestPath    string        `json:"dest_path"`
	Status      HistoryStatus `json:"status"`
	Message     string        `json:"message,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Credit is a cast or crew member cached from TMDB.
type Credit struct {
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	ProfilePath string `json:"profile_path,omitempty"`
}

// Entry is a persisted catalog row keyed by content hash.
type Entry struct {
	ID                int64      `json:"id"`
	Hash              string     `json:"hash"`
	Title             string     `json:"title"`
	Year              string     `json:"year,omitempty"`
	PosterPath        string     `json:"poster_path,omitempty"`
	BackdropPath      string     `json:"backdrop_path,omitempty"`
	Overview          string     `json:"overview,omitempty"`
	Runtime           int        `json:"runtime,omitempty"`
	Genres            []string   `json:"genres,omitempty"`
	State             string     `json:"state,omitempty"`
	Progress          float64    `json:"progress"`
	Size              int64      `json:"size"`
	AddedAt           time.Time  `json:"added_at"`
	Status            Status     `json:"status"`
	Cast              []Credit   `json:"cast,omitempty"`
	Crew              []Credit   `json:"crew,omitempty"`
	VoteAverage       float64    `json:"vote_average,omitempty"`
	VoteCount         int        `json:"vote_count,omitempty"`
	IMDbID            string     `json:"imdb_id,omitempty"`
	TMDBID            int64      `json:"tmdb_id,omitempty"`
	MetadataUpdatedAt *time.Time `json:"metadata_updated_at,omitempty"`
	Ignored           bool       `json:"ignored"`
	TorrentName       string     `json:"torrent_name,omitempty"`
	Watchlist         bool       `json:"watchlist"`
	WatchlistExpiry   *time.Time `json:"watchlist_expiry,omitempty"`
}

// TrackingUpdate carries the fields a reconciliation pass refreshes on an
// existing entry.
type TrackingUpdate struct {
	Hash        string
	Status      Status
	Progress    float64
	State       string
	Size        int64
	TorrentName string
}

// TitleScope narrows FindByTitle to one class of entry.
type TitleScope int

const (
	// TitleAny matches every entry.
	TitleAny TitleScope = iota
	// TitleIgnored matches only ignored entries.
	TitleIgnored
	// TitleWatchlisted matches only watchlisted entries.
	TitleWatchlisted
	// TitleVisible matches entries that are neither ignored nor watchlisted.
	TitleVisible
)

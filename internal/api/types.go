package api

import (
	"plexmover/internal/copyengine"
	"plexmover/internal/feeds"
	"plexmover/internal/store"
	"plexmover/internal/workflow"
)

// PosterPrefix is the route cached artwork is served under.
const PosterPrefix = "/posters/"

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool                      `json:"running"`
	Workflow     workflow.StatusSummary    `json:"workflow"`
	Feeds        feeds.Status              `json:"feeds"`
	Copies       map[string]copyengine.Job `json:"copies"`
	DatabasePath string                    `json:"database_path"`
	LockFilePath string                    `json:"lock_file_path"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

// Message is the success/message envelope of mutating endpoints.
type Message struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MovieView is a catalog entry as rendered by the API.
type MovieView struct {
	store.Entry
	PosterURL     string          `json:"poster_url,omitempty"`
	BackdropURL   string          `json:"backdrop_url,omitempty"`
	CopyProgress  *copyengine.Job `json:"copy_progress,omitempty"`
	DaysRemaining int             `json:"days_remaining,omitempty"`
}

// MoviesResponse wraps the visible catalog.
type MoviesResponse struct {
	Movies []MovieView `json:"movies"`
}

// ListResponse wraps the ignored and watchlist listings.
type ListResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Movies  []MovieView `json:"movies"`
}

// IdentifyRequest selects the TMDB movie for an entry.
type IdentifyRequest struct {
	TMDBID int64 `json:"tmdb_id"`
}

// IdentifyResponse reports the result of an identify call.
type IdentifyResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Movie   *MovieView `json:"movie,omitempty"`
}

// MoveResponse acknowledges a background move.
type MoveResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// BatchCopyRequest lists the entries to move.
type BatchCopyRequest struct {
	TorrentHashes []string `json:"torrent_hashes"`
}

// BatchCopyResponse counts a batch move.
type BatchCopyResponse struct {
	Success bool     `json:"success"`
	Copied  int      `json:"copied"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// UnignoreRequest names the entry to restore.
type UnignoreRequest struct {
	Hash string `json:"hash"`
}

// WatchlistRequest sets the watchlist window in days.
type WatchlistRequest struct {
	Days int `json:"days"`
}

// WatchlistResponse acknowledges a watchlist addition.
type WatchlistResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// FeedFetchResponse reports a manual feed refresh.
type FeedFetchResponse struct {
	Success bool     `json:"success"`
	Added   int      `json:"added"`
	Movies  []string `json:"movies"`
	Message string   `json:"message"`
}

// FeedTestRequest names a feed URL to probe.
type FeedTestRequest struct {
	URL string `json:"url"`
}

// FeedInfo describes a probed feed.
type FeedInfo struct {
	Title   string `json:"title"`
	Entries int    `json:"entries"`
}

// FeedTestResponse reports a feed probe.
type FeedTestResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	FeedInfo *FeedInfo `json:"feed_info,omitempty"`
}

// TelegramTestRequest carries credentials to test before saving them.
type TelegramTestRequest struct {
	Token  string `json:"token"`
	ChatID string `json:"chat_id"`
}

// TriggerResponse acknowledges a poll trigger.
type TriggerResponse struct {
	Status string `json:"status"`
}

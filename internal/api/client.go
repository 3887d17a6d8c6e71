package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"plexmover/internal/config"
	"plexmover/internal/feeds"
	"plexmover/internal/store"
	"plexmover/internal/workflow"
)

// StatusError is returned for non-2xx responses. Message carries the
// daemon's explanation when the body had one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return e.Message
}

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the daemon bound at bind. A bare host:port is
// treated as plain HTTP.
func NewClient(bind, token string, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{baseURL: base, token: strings.TrimSpace(token), http: &http.Client{Timeout: timeout}}
}

// ClientFromConfig builds a client from the api_bind and api_token settings.
func ClientFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return nil, errors.New("api_bind is not configured")
	}
	return NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken, 0), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func hashPath(prefix, hash string) string {
	return prefix + url.PathEscape(strings.TrimSpace(hash))
}

// Health pings the daemon.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &out)
	return out, err
}

// Status returns daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// Torrents lists live torrents with derived statuses.
func (c *Client) Torrents(ctx context.Context) ([]workflow.TorrentView, error) {
	var out []workflow.TorrentView
	err := c.do(ctx, http.MethodGet, "/api/torrents", nil, &out)
	return out, err
}

// Trigger wakes the poll loop.
func (c *Client) Trigger(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/trigger", nil, nil)
}

// Sync runs one reconciliation pass and waits for it.
func (c *Client) Sync(ctx context.Context) (workflow.PassSummary, error) {
	var out workflow.PassSummary
	err := c.do(ctx, http.MethodPost, "/api/sync", nil, &out)
	return out, err
}

// History returns the most recent move-ledger records.
func (c *Client) History(ctx context.Context) ([]store.HistoryRecord, error) {
	var out []store.HistoryRecord
	err := c.do(ctx, http.MethodGet, "/api/history", nil, &out)
	return out, err
}

// Movies returns the visible catalog.
func (c *Client) Movies(ctx context.Context) ([]MovieView, error) {
	var out MoviesResponse
	err := c.do(ctx, http.MethodGet, "/api/movies", nil, &out)
	return out.Movies, err
}

// Movie returns one catalog entry.
func (c *Client) Movie(ctx context.Context, hash string) (MovieView, error) {
	var out MovieView
	err := c.do(ctx, http.MethodGet, hashPath("/api/movie/", hash), nil, &out)
	return out, err
}

// Identify pins an entry to a TMDB movie.
func (c *Client) Identify(ctx context.Context, hash string, tmdbID int64) (IdentifyResponse, error) {
	var out IdentifyResponse
	err := c.do(ctx, http.MethodPost, hashPath("/api/movie/", hash)+"/identify", IdentifyRequest{TMDBID: tmdbID}, &out)
	return out, err
}

// Move starts a background move.
func (c *Client) Move(ctx context.Context, hash string) (MoveResponse, error) {
	var out MoveResponse
	err := c.do(ctx, http.MethodPost, hashPath("/api/move/", hash), nil, &out)
	return out, err
}

// Mark records a manual move.
func (c *Client) Mark(ctx context.Context, hash string) (Message, error) {
	return c.message(ctx, http.MethodPost, hashPath("/api/mark/", hash), nil)
}

// Stop cancels a running copy.
func (c *Client) Stop(ctx context.Context, hash string) (Message, error) {
	return c.message(ctx, http.MethodPost, hashPath("/api/stop/", hash), nil)
}

// Delete removes an entry, optionally keeping it as ignored.
func (c *Client) Delete(ctx context.Context, hash string, ignore bool) (Message, error) {
	path := hashPath("/api/movie/", hash)
	if ignore {
		path += "?ignore=true"
	}
	return c.message(ctx, http.MethodDelete, path, nil)
}

// BatchCopy moves several entries.
func (c *Client) BatchCopy(ctx context.Context, hashes []string) (BatchCopyResponse, error) {
	var out BatchCopyResponse
	err := c.do(ctx, http.MethodPost, "/api/movies/batch-copy", BatchCopyRequest{TorrentHashes: hashes}, &out)
	return out, err
}

// Ignored lists ignored entries.
func (c *Client) Ignored(ctx context.Context) ([]MovieView, error) {
	var out ListResponse
	err := c.do(ctx, http.MethodGet, "/api/ignored-movies", nil, &out)
	return out.Movies, err
}

// Unignore restores one ignored entry.
func (c *Client) Unignore(ctx context.Context, hash string) (Message, error) {
	return c.message(ctx, http.MethodPost, "/api/unignore-movie", UnignoreRequest{Hash: hash})
}

// ResetIgnored restores every ignored entry.
func (c *Client) ResetIgnored(ctx context.Context) (Message, error) {
	return c.message(ctx, http.MethodPost, "/api/reset-ignored", nil)
}

// Watchlist lists watchlisted entries.
func (c *Client) Watchlist(ctx context.Context) ([]MovieView, error) {
	var out ListResponse
	err := c.do(ctx, http.MethodGet, "/api/watchlist", nil, &out)
	return out.Movies, err
}

// AddWatchlist watchlists an entry for days.
func (c *Client) AddWatchlist(ctx context.Context, hash string, days int) (WatchlistResponse, error) {
	var out WatchlistResponse
	err := c.do(ctx, http.MethodPost, hashPath("/api/watchlist/", hash), WatchlistRequest{Days: days}, &out)
	return out, err
}

// RemoveWatchlist takes an entry off the watchlist.
func (c *Client) RemoveWatchlist(ctx context.Context, hash string) (Message, error) {
	return c.message(ctx, http.MethodDelete, hashPath("/api/watchlist/", hash), nil)
}

// FetchFeeds refreshes every enabled feed now.
func (c *Client) FetchFeeds(ctx context.Context) (FeedFetchResponse, error) {
	var out FeedFetchResponse
	err := c.do(ctx, http.MethodPost, "/api/rss/fetch", nil, &out)
	return out, err
}

// FeedStatus reports the next scheduled feed refresh.
func (c *Client) FeedStatus(ctx context.Context) (feeds.Status, error) {
	var out feeds.Status
	err := c.do(ctx, http.MethodGet, "/api/rss/status", nil, &out)
	return out, err
}

// ClearFeeds deletes feed-only entries.
func (c *Client) ClearFeeds(ctx context.Context) (Message, error) {
	return c.message(ctx, http.MethodPost, "/api/clear-rss-movies", nil)
}

// TestFeed probes a feed URL.
func (c *Client) TestFeed(ctx context.Context, feedURL string) (FeedTestResponse, error) {
	var out FeedTestResponse
	err := c.do(ctx, http.MethodPost, "/api/test_rss_feed", FeedTestRequest{URL: feedURL}, &out)
	return out, err
}

// TestTelegram sends a Telegram test message. Blank credentials fall back to
// the daemon's configuration.
func (c *Client) TestTelegram(ctx context.Context, token, chatID string) (Message, error) {
	return c.message(ctx, http.MethodPost, "/api/test_telegram", TelegramTestRequest{Token: token, ChatID: chatID})
}

func (c *Client) message(ctx context.Context, method, path string, body any) (Message, error) {
	var out Message
	err := c.do(ctx, method, path, body, &out)
	return out, err
}

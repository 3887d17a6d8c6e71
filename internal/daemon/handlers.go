package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"plexmover/internal/api"
	"plexmover/internal/catalog"
	"plexmover/internal/copyengine"
	"plexmover/internal/feeds"
	"plexmover/internal/logging"
	"plexmover/internal/mover"
	"plexmover/internal/notifications"
	"plexmover/internal/services"
	"plexmover/internal/store"
)

const historyLimit = 50

func (s *apiServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok", Running: s.daemon.running.Load()})
}

func (s *apiServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleTorrents(c *gin.Context) {
	views, err := s.daemon.comp.Workflow.Torrents(c.Request.Context())
	if err != nil {
		s.fail(c, err, "list torrents failed")
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *apiServer) handleTrigger(c *gin.Context) {
	s.daemon.comp.Workflow.Trigger()
	c.JSON(http.StatusOK, api.TriggerResponse{Status: "triggered"})
}

func (s *apiServer) handleSync(c *gin.Context) {
	summary, err := s.daemon.comp.Workflow.SyncNow(c.Request.Context())
	if err != nil {
		s.fail(c, err, "sync failed")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *apiServer) handleHistory(c *gin.Context) {
	records, err := s.daemon.comp.Store.ListHistory(c.Request.Context(), historyLimit)
	if err != nil {
		s.fail(c, err, "list history failed")
		return
	}
	if records == nil {
		records = []store.HistoryRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *apiServer) handleMovies(c *gin.Context) {
	entries, err := s.daemon.comp.Store.ListEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err, "list movies failed")
		return
	}
	visible := entries[:0]
	for _, entry := range entries {
		if entry.Ignored || entry.Watchlist {
			continue
		}
		visible = append(visible, entry)
	}
	c.JSON(http.StatusOK, api.MoviesResponse{Movies: api.FromEntries(visible, s.daemon.comp.Copies.Snapshot())})
}

func (s *apiServer) handleMovie(c *gin.Context) {
	hash := c.Param("hash")
	entry, err := s.daemon.comp.Store.GetEntry(c.Request.Context(), hash)
	if err != nil {
		s.fail(c, err, "load movie failed")
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
		return
	}
	c.JSON(http.StatusOK, api.FromEntry(*entry, s.job(hash)))
}

func (s *apiServer) handleIdentify(c *gin.Context) {
	var req api.IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TMDBID <= 0 {
		c.JSON(http.StatusBadRequest, api.IdentifyResponse{Message: "Missing API Key or TMDB ID"})
		return
	}
	hash := c.Param("hash")
	entry, err := s.daemon.comp.Catalog.Identify(c.Request.Context(), hash, req.TMDBID)
	if err != nil {
		if errors.Is(err, services.ErrConfiguration) {
			c.JSON(http.StatusBadRequest, api.IdentifyResponse{Message: "Missing API Key or TMDB ID"})
			return
		}
		c.JSON(statusFor(err), api.IdentifyResponse{Message: err.Error()})
		return
	}
	view := api.FromEntry(*entry, s.job(hash))
	c.JSON(http.StatusOK, api.IdentifyResponse{
		Success: true,
		Message: fmt.Sprintf("Identified as %s", titleWithYear(entry)),
		Movie:   &view,
	})
}

func (s *apiServer) handleDeleteMovie(c *gin.Context) {
	ignore, _ := strconv.ParseBool(c.DefaultQuery("ignore", "false"))
	err := s.daemon.comp.Catalog.RemoveEntry(c.Request.Context(), c.Param("hash"), ignore)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, api.Message{Success: true, Message: "Movie deleted"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, api.Message{Message: "Movie not found"})
	default:
		s.fail(c, err, "delete movie failed")
	}
}

func (s *apiServer) handleBatchCopy(c *gin.Context) {
	var req api.BatchCopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Message{Message: "Invalid request body"})
		return
	}
	result := s.daemon.comp.Mover.BatchMove(c.Request.Context(), req.TorrentHashes)
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	c.JSON(http.StatusOK, api.BatchCopyResponse{
		Success: true,
		Copied:  result.Started,
		Skipped: result.Skipped,
		Errors:  errs,
	})
}

func (s *apiServer) handleMove(c *gin.Context) {
	err := s.daemon.comp.Mover.Launch(c.Request.Context(), c.Param("hash"))
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, api.MoveResponse{Status: "started", Message: "Move started in background"})
	case errors.Is(err, mover.ErrInProgress):
		c.JSON(http.StatusConflict, api.MoveResponse{Status: "busy", Message: "Move already in progress"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, api.MoveResponse{Status: "error", Message: "Torrent not found"})
	default:
		c.JSON(statusFor(err), api.MoveResponse{Status: "error", Message: err.Error()})
	}
}

func (s *apiServer) handleMark(c *gin.Context) {
	err := s.daemon.comp.Mover.MarkMoved(c.Request.Context(), c.Param("hash"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, api.Message{Success: true, Message: "Marked as moved"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, api.Message{Message: "Torrent not found"})
	default:
		c.JSON(statusFor(err), api.Message{Message: err.Error()})
	}
}

func (s *apiServer) handleStop(c *gin.Context) {
	if s.daemon.comp.Copies.Stop(c.Param("hash")) {
		c.JSON(http.StatusOK, api.Message{Success: true, Message: "Stop signal sent"})
		return
	}
	c.JSON(http.StatusNotFound, api.Message{Message: "Could not stop copy (maybe not running?)"})
}

func (s *apiServer) handleIgnored(c *gin.Context) {
	entries, err := s.daemon.comp.Catalog.ListIgnored(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), api.ListResponse{Message: err.Error(), Movies: []api.MovieView{}})
		return
	}
	c.JSON(http.StatusOK, api.ListResponse{Success: true, Movies: api.FromEntries(entries, nil)})
}

func (s *apiServer) handleUnignore(c *gin.Context) {
	var req api.UnignoreRequest
	_ = c.ShouldBindJSON(&req)
	hash := strings.TrimSpace(req.Hash)
	if hash == "" {
		c.JSON(http.StatusBadRequest, api.Message{Message: "No hash provided"})
		return
	}
	ctx := c.Request.Context()
	entry, err := s.daemon.comp.Store.GetEntry(ctx, hash)
	if err != nil {
		s.fail(c, err, "load movie failed")
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, api.Message{Message: "Movie not found"})
		return
	}
	err = s.daemon.comp.Catalog.Unignore(ctx, hash)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, api.Message{Success: true, Message: fmt.Sprintf("'%s' removed from ignored list", entry.Title)})
	case errors.Is(err, catalog.ErrNotIgnored):
		c.JSON(http.StatusConflict, api.Message{Message: "Movie is not ignored"})
	default:
		s.fail(c, err, "unignore failed")
	}
}

func (s *apiServer) handleResetIgnored(c *gin.Context) {
	n, err := s.daemon.comp.Catalog.ResetIgnored(c.Request.Context())
	if err != nil {
		s.fail(c, err, "reset ignored failed")
		return
	}
	c.JSON(http.StatusOK, api.Message{Success: true, Message: fmt.Sprintf("Reset %d ignored movies to visible", n)})
}

func (s *apiServer) handleWatchlist(c *gin.Context) {
	items, err := s.daemon.comp.Catalog.ListWatchlist(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), api.ListResponse{Message: err.Error(), Movies: []api.MovieView{}})
		return
	}
	views := make([]api.MovieView, 0, len(items))
	for _, item := range items {
		view := api.FromEntry(item.Entry, nil)
		view.DaysRemaining = item.DaysRemaining
		views = append(views, view)
	}
	c.JSON(http.StatusOK, api.ListResponse{Success: true, Movies: views})
}

func (s *apiServer) handleAddWatchlist(c *gin.Context) {
	var req api.WatchlistRequest
	_ = c.ShouldBindJSON(&req)
	days := req.Days
	if days <= 0 {
		days = catalog.DefaultWatchlistDays
	}
	expiry, err := s.daemon.comp.Catalog.AddToWatchlist(c.Request.Context(), c.Param("hash"), days)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, api.WatchlistResponse{
			Success:   true,
			Message:   fmt.Sprintf("Added to watchlist for %d days", days),
			ExpiresAt: expiry.UTC().Format(time.RFC3339),
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, api.WatchlistResponse{Message: "Movie not found"})
	default:
		c.JSON(statusFor(err), api.WatchlistResponse{Message: err.Error()})
	}
}

func (s *apiServer) handleRemoveWatchlist(c *gin.Context) {
	err := s.daemon.comp.Catalog.RemoveFromWatchlist(c.Request.Context(), c.Param("hash"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, api.Message{Success: true, Message: "Removed from watchlist"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, api.Message{Message: "Movie not found"})
	default:
		s.fail(c, err, "remove from watchlist failed")
	}
}

func (s *apiServer) handleFeedFetch(c *gin.Context) {
	result, err := s.daemon.comp.Feeds.Refresh(c.Request.Context())
	switch {
	case errors.Is(err, feeds.ErrNoFeeds):
		c.JSON(http.StatusOK, api.FeedFetchResponse{Movies: []string{}, Message: "No RSS feeds configured"})
		return
	case err != nil:
		c.JSON(statusFor(err), api.FeedFetchResponse{Movies: []string{}, Message: err.Error()})
		return
	}
	movies := result.Movies
	if movies == nil {
		movies = []string{}
	}
	c.JSON(http.StatusOK, api.FeedFetchResponse{
		Success: true,
		Added:   result.Added,
		Movies:  movies,
		Message: result.Message,
	})
}

func (s *apiServer) handleFeedStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.daemon.comp.Feeds.Status())
}

func (s *apiServer) handleClearFeeds(c *gin.Context) {
	n, err := s.daemon.comp.Catalog.ClearFeedEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err, "clear feed entries failed")
		return
	}
	c.JSON(http.StatusOK, api.Message{Success: true, Message: fmt.Sprintf("Deleted %d RSS movies", n)})
}

func (s *apiServer) handleTestFeed(c *gin.Context) {
	var req api.FeedTestRequest
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, api.FeedTestResponse{Message: "Missing RSS URL"})
		return
	}
	title, count, err := s.daemon.comp.Fetcher.Probe(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusOK, api.FeedTestResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, api.FeedTestResponse{
		Success:  true,
		Message:  fmt.Sprintf("Found %d entries", count),
		FeedInfo: &api.FeedInfo{Title: title, Entries: count},
	})
}

func (s *apiServer) handleTestTelegram(c *gin.Context) {
	var req api.TelegramTestRequest
	_ = c.ShouldBindJSON(&req)
	err := notifications.TestTelegram(c.Request.Context(), s.daemon.cfg, req.Token, req.ChatID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, api.Message{Success: true, Message: "Test message sent"})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, api.Message{Message: "Missing Token or Chat ID"})
	default:
		c.JSON(http.StatusOK, api.Message{Message: err.Error()})
	}
}

func (s *apiServer) job(hash string) *copyengine.Job {
	job, ok := s.daemon.comp.Copies.Get(hash)
	if !ok {
		return nil
	}
	return &job
}

func (s *apiServer) fail(c *gin.Context, err error, msg string) {
	logging.ErrorWithContext(s.logger, msg, services.Classify(err),
		logging.String("path", c.Request.URL.Path),
		logging.String(logging.FieldCorrelationID, c.GetString(requestIDKey)),
		logging.Error(err),
	)
	c.JSON(statusFor(err), api.Message{Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrExternalTool), errors.Is(err, services.ErrTimeout):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func titleWithYear(entry *store.Entry) string {
	if entry.Year == "" {
		return entry.Title
	}
	return fmt.Sprintf("%s (%s)", entry.Title, entry.Year)
}

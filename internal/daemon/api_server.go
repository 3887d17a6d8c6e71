package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"plexmover/internal/config"
	"plexmover/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	engine *gin.Engine

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	gin.SetMode(gin.ReleaseMode)

	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
		engine: gin.New(),
	}
	srv.engine.Use(gin.Recovery(), requestIDMiddleware(), srv.accessLog())
	srv.routes(cfg)
	return srv
}

func (s *apiServer) routes(cfg *config.Config) {
	if dir := cfg.PosterDir(); dir != "" {
		s.engine.Static("/posters", dir)
	}

	api := s.engine.Group("/api")
	api.Use(authMiddleware(cfg.Paths.APIToken))
	{
		api.GET("/health", s.handleHealth)
		api.GET("/status", s.handleStatus)
		api.GET("/torrents", s.handleTorrents)
		api.POST("/trigger", s.handleTrigger)
		api.POST("/sync", s.handleSync)
		api.GET("/history", s.handleHistory)

		api.GET("/movies", s.handleMovies)
		api.GET("/movie/:hash", s.handleMovie)
		api.DELETE("/movie/:hash", s.handleDeleteMovie)
		api.POST("/movie/:hash/identify", s.handleIdentify)
		api.POST("/movies/batch-copy", s.handleBatchCopy)

		api.POST("/move/:hash", s.handleMove)
		api.POST("/mark/:hash", s.handleMark)
		api.POST("/stop/:hash", s.handleStop)

		api.GET("/ignored-movies", s.handleIgnored)
		api.POST("/unignore-movie", s.handleUnignore)
		api.POST("/reset-ignored", s.handleResetIgnored)

		api.GET("/watchlist", s.handleWatchlist)
		api.POST("/watchlist/:hash", s.handleAddWatchlist)
		api.DELETE("/watchlist/:hash", s.handleRemoveWatchlist)

		api.POST("/rss/fetch", s.handleFeedFetch)
		api.GET("/rss/status", s.handleFeedStatus)
		api.POST("/clear-rss-movies", s.handleClearFeeds)
		api.POST("/test_rss_feed", s.handleTestFeed)
		api.POST("/test_telegram", s.handleTestTelegram)
	}
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("api request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
			logging.String(logging.FieldCorrelationID, c.GetString(requestIDKey)),
		)
	}
}

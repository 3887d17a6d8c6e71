package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"plexmover/internal/catalog"
	"plexmover/internal/config"
	"plexmover/internal/copyengine"
	"plexmover/internal/dispatch"
	"plexmover/internal/feeds"
	"plexmover/internal/logging"
	"plexmover/internal/notifications"
	"plexmover/internal/store"
	"plexmover/internal/torrent"
)

// CopyState exposes the copy engine's progress table.
type CopyState interface {
	IsCopying(key string) bool
	Get(key string) (copyengine.Job, bool)
	ActiveCount() int
}

// Sweeper launches moves for finished torrents.
type Sweeper interface {
	MoveCompleted(ctx context.Context) (int, error)
}

// Dependencies bundles the collaborators a Manager drives.
type Dependencies struct {
	Store      *store.Store
	Torrents   torrent.Client
	Copies     CopyState
	Catalog    *catalog.Service
	Dispatcher *dispatch.Dispatcher
	Sweeper    Sweeper
	Feeds      *feeds.Service
	Notifier   notifications.Service
}

// Manager runs the poll loop and the feed scheduler.
type Manager struct {
	cfg          *config.Config
	deps         Dependencies
	logger       *slog.Logger
	pollInterval time.Duration
	now          func() time.Time

	wake   chan struct{}
	passMu sync.Mutex

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastPass *PassSummary
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Manager {
	interval := time.Duration(cfg.Workflow.PollIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}
	return &Manager{
		cfg:          cfg,
		deps:         deps,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		pollInterval: interval,
		now:          time.Now,
		wake:         make(chan struct{}, 1),
	}
}

// PollInterval reports the configured time between passes.
func (m *Manager) PollInterval() time.Duration {
	return m.pollInterval
}

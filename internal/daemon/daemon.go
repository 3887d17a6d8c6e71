package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gofrs/flock"

	"plexmover/internal/api"
	"plexmover/internal/catalog"
	"plexmover/internal/config"
	"plexmover/internal/copyengine"
	"plexmover/internal/feeds"
	"plexmover/internal/logging"
	"plexmover/internal/mover"
	"plexmover/internal/notifications"
	"plexmover/internal/store"
	"plexmover/internal/workflow"
)

// Components bundles the services the daemon owns.
type Components struct {
	Store    *store.Store
	Workflow *workflow.Manager
	Mover    *mover.Mover
	Copies   *copyengine.Engine
	Catalog  *catalog.Service
	Feeds    *feeds.Service
	Fetcher  *feeds.Fetcher
	Notifier notifications.Service
}

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comp   Components
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, comp Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || comp.Store == nil || comp.Workflow == nil || comp.Mover == nil {
		return nil, errors.New("daemon requires config, store, workflow manager, and mover")
	}
	if comp.Copies == nil || comp.Catalog == nil || comp.Feeds == nil {
		return nil, errors.New("daemon requires copy engine, catalog, and feeds")
	}
	if comp.Fetcher == nil {
		comp.Fetcher = feeds.NewFetcher(0)
	}
	if comp.Notifier == nil {
		comp.Notifier = notifications.NewService(cfg)
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		comp:     comp,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logging.NewComponentLogger(logger, "api"))
	return d, nil
}

// Start acquires the daemon lock, then launches the workflow manager and the
// API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another plexmover daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.comp.Workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.comp.Workflow.Stop()
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("plexmover daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.comp.Workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("plexmover daemon stopped")
}

// Close stops the daemon, cancels moves still copying and waits for their
// goroutines to exit, then closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	d.comp.Mover.Close()
	d.comp.Mover.Wait()
	return d.comp.Store.Close()
}

// Handler exposes the API routes, mainly for tests.
func (d *Daemon) Handler() http.Handler {
	return d.api.engine
}

// Address returns the bound API address once the daemon has started.
func (d *Daemon) Address() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() api.DaemonStatus {
	return api.DaemonStatus{
		Running:      d.running.Load(),
		Workflow:     d.comp.Workflow.Status(),
		Feeds:        d.comp.Feeds.Status(),
		Copies:       d.comp.Copies.Snapshot(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}

package workflow

import (
	"context"
	"errors"
	"time"

	"plexmover/internal/logging"
	"plexmover/internal/services"
)

// Start begins background processing: the poll loop and, when feeds are
// configured, the feed scheduler. The first pass runs immediately.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.deps.Store == nil || m.deps.Torrents == nil {
		m.mu.Unlock()
		return services.Wrap(services.ErrConfiguration, "workflow", "start", "store and torrent client are required", nil)
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	feedsEnabled := m.deps.Feeds != nil && m.deps.Feeds.HasFeeds()
	if feedsEnabled {
		m.wg.Add(1)
	}
	m.mu.Unlock()

	go m.runPoll(runCtx)
	if feedsEnabled {
		go func() {
			defer m.wg.Done()
			m.deps.Feeds.Run(runCtx)
		}()
	}
	m.logger.Info("workflow started",
		logging.Duration("poll_interval", m.pollInterval),
		logging.Bool("auto_move", m.cfg.Workflow.EnableScheduler),
		logging.Bool("feeds", feedsEnabled),
	)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Trigger wakes the poll loop for an immediate pass. It never blocks.
func (m *Manager) Trigger() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) runPoll(ctx context.Context) {
	defer m.wg.Done()
	ctx = services.WithComponent(ctx, "poller")
	for {
		if _, err := m.SyncNow(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(m.logger, "poll pass failed", "poll_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check qBittorrent connectivity and the state database"),
				logging.String(logging.FieldImpact, "catalog not refreshed this cycle"),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		case <-time.After(m.pollInterval):
		}
	}
}

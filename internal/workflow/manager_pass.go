package workflow

import (
	"context"
	"fmt"
	"time"

	"plexmover/internal/fileutil"
	"plexmover/internal/logging"
	"plexmover/internal/notifications"
	"plexmover/internal/reconcile"
	"plexmover/internal/store"
	"plexmover/internal/textutil"
	"plexmover/internal/torrent"
)

// PassSummary reports what one reconciliation pass did.
type PassSummary struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Items     int           `json:"items"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Orphaned  int           `json:"orphaned"`
	Completed int           `json:"completed"`
	AutoMoved int           `json:"auto_moved"`
}

// SyncNow runs one reconciliation pass synchronously. Concurrent calls are
// serialized.
func (m *Manager) SyncNow(ctx context.Context) (PassSummary, error) {
	m.passMu.Lock()
	defer m.passMu.Unlock()

	summary, err := m.pass(ctx)
	m.recordPass(summary, err)
	return summary, err
}

func (m *Manager) pass(ctx context.Context) (PassSummary, error) {
	summary := PassSummary{StartedAt: m.now()}
	items, err := m.deps.Torrents.ListItems(ctx)
	if err != nil {
		return summary, fmt.Errorf("list torrents: %w", err)
	}
	summary.Items = len(items)

	entries, err := m.deps.Store.ListEntries(ctx)
	if err != nil {
		return summary, err
	}
	history, err := m.historyFor(ctx, items)
	if err != nil {
		return summary, err
	}

	plan := reconcile.ReconcileCatalog(items, entries, func(item torrent.Item) store.Status {
		return m.derive(item, history[item.Name])
	})

	if len(plan.Create) > 0 {
		if m.deps.Catalog == nil {
			m.logger.Debug("catalog service not configured; skipping new entries", logging.Int("count", len(plan.Create)))
		} else {
			created, err := m.deps.Catalog.Create(ctx, plan.Create)
			summary.Created = created
			if err != nil {
				logging.WarnWithContext(m.logger, "some new torrents were not catalogued", "catalog_create_incomplete",
					logging.Int("failed", len(plan.Create)-created),
					logging.String(logging.FieldImpact, "retried on the next pass"),
				)
			}
		}
	}
	failed := reconcile.ApplyTracking(ctx, m.deps.Store, plan)
	for hash, err := range failed {
		logging.WarnWithContext(m.logger, "tracking write failed", "tracking_write_failed",
			logging.String(logging.FieldHash, hash),
			logging.Error(err),
		)
	}
	for _, update := range plan.Updates {
		if failed[update.Hash] == nil {
			summary.Updated++
		}
	}
	for _, hash := range plan.Orphan {
		if failed[hash] == nil {
			summary.Orphaned++
		}
	}
	if summary.Orphaned > 0 {
		m.logger.Info("entries orphaned", logging.Int("count", summary.Orphaned))
	}

	for _, done := range plan.Completed {
		// The persisted status is still pre-edge, so the next pass sees
		// this completion again.
		if failed[done.Item.Hash] != nil {
			continue
		}
		summary.Completed++
		m.onCompleted(ctx, done)
	}

	if m.cfg.Workflow.EnableScheduler && m.deps.Sweeper != nil {
		launched, err := m.deps.Sweeper.MoveCompleted(ctx)
		if err != nil {
			logging.WarnWithContext(m.logger, "auto-move sweep failed", "auto_move_failed", logging.Error(err))
		}
		summary.AutoMoved = launched
	}

	summary.Duration = m.now().Sub(summary.StartedAt)
	m.logger.Debug("poll pass complete",
		logging.Int("items", summary.Items),
		logging.Int("created", summary.Created),
		logging.Int("updated", summary.Updated),
		logging.Int("completed", summary.Completed),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (m *Manager) historyFor(ctx context.Context, items []torrent.Item) (map[string]*store.HistoryRecord, error) {
	history := make(map[string]*store.HistoryRecord, len(items))
	for _, item := range items {
		if _, ok := history[item.Name]; ok {
			continue
		}
		rec, err := m.deps.Store.MostRecentHistory(ctx, item.Name)
		if err != nil {
			return nil, err
		}
		history[item.Name] = rec
	}
	return history, nil
}

func (m *Manager) derive(item torrent.Item, last *store.HistoryRecord) store.Status {
	copying := m.deps.Copies != nil && m.deps.Copies.IsCopying(item.Hash)
	return reconcile.DeriveStatus(reconcile.Input{
		Item:       item,
		Last:       last,
		Copying:    copying,
		LibraryDir: m.cfg.Paths.LibraryDir,
		Exists:     fileutil.Exists,
	})
}

func (m *Manager) onCompleted(ctx context.Context, done reconcile.Completion) {
	m.logger.Info("download completed",
		logging.String(logging.FieldHash, done.Item.Hash),
		logging.String("torrent", done.Item.Name),
	)
	title, year := done.Entry.Title, done.Entry.Year
	if title == "" {
		title, year = textutil.CleanTorrentName(done.Item.Name)
	}
	notifications.PublishAsync(m.deps.Notifier, m.logger, notifications.EventDownloadComplete, notifications.Payload{
		"title": title,
		"year":  year,
	})
	if m.deps.Dispatcher != nil {
		m.deps.Dispatcher.OnCompleted(ctx, done.Item)
	}
}

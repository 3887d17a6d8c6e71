package workflow

import (
	"context"
	"time"

	"plexmover/internal/copyengine"
	"plexmover/internal/store"
	"plexmover/internal/torrent"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running      bool         `json:"running"`
	PollInterval string       `json:"poll_interval"`
	AutoMove     bool         `json:"auto_move"`
	ActiveCopies int          `json:"active_copies"`
	LastError    string       `json:"last_error,omitempty"`
	LastPass     *PassSummary `json:"last_pass,omitempty"`
	Checks       []Health     `json:"checks"`
}

// Status returns the latest workflow information.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	var lastPass *PassSummary
	if m.lastPass != nil {
		cp := *m.lastPass
		lastPass = &cp
	}
	m.mu.RUnlock()

	summary := StatusSummary{
		Running:      running,
		PollInterval: m.pollInterval.String(),
		AutoMove:     m.cfg.Workflow.EnableScheduler,
		LastPass:     lastPass,
	}
	if m.deps.Copies != nil {
		summary.ActiveCopies = m.deps.Copies.ActiveCount()
	}
	torrents := Healthy("qbittorrent")
	if lastErr != nil {
		summary.LastError = lastErr.Error()
		torrents = Unhealthy("qbittorrent", lastErr.Error())
	}
	summary.Checks = []Health{torrents}
	return summary
}

func (m *Manager) recordPass(summary PassSummary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
	if err == nil {
		cp := summary
		m.lastPass = &cp
	}
}

// TorrentView is a live torrent with its derived status and copy progress.
type TorrentView struct {
	torrent.Item
	Status   store.Status    `json:"status"`
	Copy     *copyengine.Job `json:"copy,omitempty"`
	LastMove *time.Time      `json:"last_move,omitempty"`
}

// Torrents lists live torrents with freshly derived statuses.
func (m *Manager) Torrents(ctx context.Context) ([]TorrentView, error) {
	items, err := m.deps.Torrents.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	history, err := m.historyFor(ctx, items)
	if err != nil {
		return nil, err
	}
	views := make([]TorrentView, 0, len(items))
	for _, item := range items {
		last := history[item.Name]
		view := TorrentView{Item: item, Status: m.derive(item, last)}
		if m.deps.Copies != nil {
			if job, ok := m.deps.Copies.Get(item.Hash); ok {
				view.Copy = &job
			}
		}
		if last != nil && !last.Timestamp.IsZero() {
			ts := last.Timestamp
			view.LastMove = &ts
		}
		views = append(views, view)
	}
	return views, nil
}

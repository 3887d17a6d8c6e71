package mover

import (
	"context"
	"errors"
	"fmt"

	"plexmover/internal/logging"
	"plexmover/internal/reconcile"
	"plexmover/internal/store"
)

// BatchResult counts a BatchMove request.
type BatchResult struct {
	Started int      `json:"started"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// BatchMove launches moves for catalog entries. Unknown hashes and entries in
// error or orphaned state are skipped.
func (m *Mover) BatchMove(ctx context.Context, hashes []string) BatchResult {
	var result BatchResult
	for _, hash := range hashes {
		entry, err := m.catalog.GetEntry(ctx, hash)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", hash, err))
			continue
		}
		if entry == nil || entry.Status == store.StatusError || entry.Status == store.StatusOrphaned {
			result.Skipped++
			continue
		}
		if err := m.Launch(ctx, hash); err != nil {
			if errors.Is(err, ErrInProgress) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", hash, err))
			continue
		}
		result.Started++
	}
	m.logger.Info("batch move requested",
		logging.Int("requested", len(hashes)),
		logging.Int("started", result.Started),
		logging.Int("skipped", result.Skipped),
		logging.Int("errors", len(result.Errors)),
	)
	return result
}

// MoveCompleted launches a move for every finished torrent whose name has no
// successful move on record. It returns the number launched.
func (m *Mover) MoveCompleted(ctx context.Context) (int, error) {
	items, err := m.client.ListItems(ctx)
	if err != nil {
		return 0, err
	}
	launched := 0
	for _, item := range items {
		if item.Progress < 1 || reconcile.IsDownloading(item.State) {
			continue
		}
		if m.InFlight(item.Hash) {
			continue
		}
		done, err := m.ledger.HasSuccessfulMove(ctx, item.Name)
		if err != nil {
			logging.WarnWithContext(m.logger, "history lookup failed", "history_read_failed",
				logging.String(logging.FieldHash, item.Hash),
				logging.Error(err),
			)
			continue
		}
		if done {
			continue
		}
		if err := m.launchItem(item); err != nil {
			continue
		}
		launched++
	}
	if launched > 0 {
		m.logger.Info("auto-move sweep launched moves", logging.Int("count", launched))
	}
	return launched, nil
}

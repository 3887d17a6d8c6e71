package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AppendHistory records a move attempt. A zero timestamp is stamped with the
// current time. The assigned ID is written back to rec.
func (s *Store) AppendHistory(ctx context.Context, rec *HistoryRecord) error {
	if rec == nil {
		return errors.New("history record is nil")
	}
	if strings.TrimSpace(rec.TorrentName) == "" {
		return errors.New("history record requires a torrent name")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO move_history (torrent_name, source_path, dest_path, status, message, timestamp)
         VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TorrentName,
		rec.SourcePath,
		rec.DestPath,
		string(rec.Status),
		nullableString(rec.Message),
		formatTime(rec.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// MostRecentHistory returns the newest record for name, or nil when the name
// has never been processed.
func (s *Store) MostRecentHistory(ctx context.Context, name string) (*HistoryRecord, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+historyColumns+` FROM move_history WHERE torrent_name = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		name,
	)
	rec, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("most recent history: %w", err)
	}
	return rec, nil
}

// ListHistory returns up to limit records, newest first. A non-positive limit
// returns every record.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]HistoryRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM move_history ORDER BY timestamp DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// HasSuccessfulMove reports whether any success record exists for name.
func (s *Store) HasSuccessfulMove(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM move_history WHERE torrent_name = ? AND status = ?`,
		name,
		string(HistorySuccess),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("has successful move: %w", err)
	}
	return count > 0, nil
}

// DeleteHistory removes every record for name and returns the count removed.
func (s *Store) DeleteHistory(ctx context.Context, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM move_history WHERE torrent_name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	return rowsAffected(res), nil
}

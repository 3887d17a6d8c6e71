package mover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"plexmover/internal/config"
	"plexmover/internal/copyengine"
	"plexmover/internal/fileutil"
	"plexmover/internal/logging"
	"plexmover/internal/notifications"
	"plexmover/internal/services"
	"plexmover/internal/store"
	"plexmover/internal/textutil"
	"plexmover/internal/torrent"
)

// ErrInProgress is returned by Launch when a move for the hash is already running.
var ErrInProgress = errors.New("move already in progress")

// Outcome classifies the result of one ProcessItem run.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

// Ledger messages recorded for non-success outcomes.
const (
	MessageInvalidName       = "Invalid name format"
	MessageDestinationExists = "Destination exists"
	MessageNoVideo           = "No video file found in folder"
	MessageInvalidSource     = "Invalid source type"
	MessageManual            = "Manually marked as moved"
)

// Result describes what ProcessItem did.
type Result struct {
	Outcome     Outcome `json:"outcome"`
	Message     string  `json:"message,omitempty"`
	Source      string  `json:"source,omitempty"`
	Destination string  `json:"destination,omitempty"`
	// Recorded is false when nothing was appended to the ledger.
	Recorded bool `json:"recorded"`
}

// Ledger is the move-history surface the mover writes to.
type Ledger interface {
	AppendHistory(ctx context.Context, rec *store.HistoryRecord) error
	HasSuccessfulMove(ctx context.Context, name string) (bool, error)
}

// Catalog reads persisted entries for batch moves.
type Catalog interface {
	GetEntry(ctx context.Context, hash string) (*store.Entry, error)
}

// Copier performs the byte transfer.
type Copier interface {
	Copy(ctx context.Context, source, destination, key string, limitMBps float64) error
	CopyTree(ctx context.Context, sourceDir, destDir, baseName, key string, limitMBps float64) (int, error)
}

// Mover runs single-item moves.
type Mover struct {
	cfg      *config.Config
	client   torrent.Client
	ledger   Ledger
	catalog  Catalog
	copier   Copier
	notifier notifications.Service
	logger   *slog.Logger

	lifetime context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New constructs a Mover. notifier may be nil.
func New(cfg *config.Config, client torrent.Client, ledger Ledger, catalog Catalog, copier Copier, notifier notifications.Service, logger *slog.Logger) *Mover {
	lifetime, cancel := context.WithCancel(context.Background())
	return &Mover{
		cfg:      cfg,
		client:   client,
		ledger:   ledger,
		catalog:  catalog,
		copier:   copier,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "mover"),
		lifetime: lifetime,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}
}

// Close cancels running moves and waits for them to return.
func (m *Mover) Close() {
	m.cancel()
	m.wg.Wait()
}

// Wait blocks until every launched move has returned.
func (m *Mover) Wait() {
	m.wg.Wait()
}

// InFlight reports whether a launched move for hash is still running.
func (m *Mover) InFlight(hash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[hash]
	return ok
}

func (m *Mover) reserve(hash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inflight[hash]; ok {
		return false
	}
	m.inflight[hash] = struct{}{}
	return true
}

func (m *Mover) release(hash string) {
	m.mu.Lock()
	delete(m.inflight, hash)
	m.mu.Unlock()
}

func (m *Mover) lookup(ctx context.Context, hash string) (*torrent.Item, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, services.Wrap(services.ErrValidation, "mover", "lookup", "hash required", nil)
	}
	item, err := m.client.GetItem(ctx, hash)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "mover", "lookup", "Torrent not found", nil)
	}
	return item, nil
}

// Move fetches the torrent by hash and runs ProcessItem synchronously.
func (m *Mover) Move(ctx context.Context, hash string) (Result, error) {
	item, err := m.lookup(ctx, hash)
	if err != nil {
		return Result{}, err
	}
	if !m.reserve(item.Hash) {
		return Result{}, ErrInProgress
	}
	defer m.release(item.Hash)
	return m.ProcessItem(ctx, *item), nil
}

// Launch fetches the torrent by hash and runs ProcessItem on a tracked
// goroutine. Lookup failures are returned; move failures land in the ledger.
func (m *Mover) Launch(ctx context.Context, hash string) error {
	item, err := m.lookup(ctx, hash)
	if err != nil {
		return err
	}
	return m.launchItem(*item)
}

func (m *Mover) launchItem(item torrent.Item) error {
	if !m.reserve(item.Hash) {
		return ErrInProgress
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release(item.Hash)
		ctx := services.WithHash(m.lifetime, item.Hash)
		m.ProcessItem(ctx, item)
	}()
	return nil
}

// MarkMoved records a manual move for the torrent without copying anything.
func (m *Mover) MarkMoved(ctx context.Context, hash string) error {
	item, err := m.lookup(ctx, hash)
	if err != nil {
		return err
	}
	rec := &store.HistoryRecord{TorrentName: item.Name, Status: store.HistoryManual, Message: MessageManual}
	if err := m.ledger.AppendHistory(ctx, rec); err != nil {
		return fmt.Errorf("record manual move: %w", err)
	}
	m.logger.Info("marked as moved", logging.String(logging.FieldHash, item.Hash), logging.String("torrent", item.Name))
	return nil
}

// ProcessItem runs the move flow for one torrent. It never returns an error;
// every failure resolves to an Outcome and, except cancellation, a ledger row.
func (m *Mover) ProcessItem(ctx context.Context, item torrent.Item) Result {
	ctx = services.WithHash(ctx, item.Hash)
	logger := logging.WithContext(ctx, m.logger).With(logging.String("torrent", item.Name))
	logger.Info("processing torrent")

	sourceRoot := m.cfg.Paths.SourceDir
	libraryRoot := m.cfg.Paths.LibraryDir
	if strings.TrimSpace(sourceRoot) == "" || strings.TrimSpace(libraryRoot) == "" {
		logging.ErrorWithContext(logger, "source or library directory not configured", "mover_misconfigured",
			logging.String(logging.FieldErrorHint, "set paths.source_dir and paths.library_dir"),
		)
		return Result{Outcome: OutcomeError, Message: "source or library directory not configured"}
	}

	base := textutil.ContentBaseName(item.ContentPath)
	if base == "" {
		base = item.Name
	}
	source, found := fileutil.FindEntry(sourceRoot, base)
	if !found {
		logger.Warn("source not found", logging.String("name", base), logging.String("root", sourceRoot))
		return m.record(ctx, logger, item, Result{Outcome: OutcomeError, Message: fmt.Sprintf("File not found in %s", sourceRoot)})
	}

	title, year, ok := textutil.ParseTitleYear(base, false)
	if !ok {
		logger.Info("name does not match Title (Year); skipping", logging.String("name", base))
		return m.record(ctx, logger, item, Result{Outcome: OutcomeSkipped, Message: MessageInvalidName, Source: source})
	}
	folder := textutil.FolderName(title, year)
	destDir := filepath.Join(libraryRoot, folder)

	info, err := os.Stat(source)
	if err != nil {
		return m.record(ctx, logger, item, Result{Outcome: OutcomeError, Message: err.Error()})
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return m.record(ctx, logger, item, Result{Outcome: OutcomeError, Message: err.Error()})
	}

	limit := m.cfg.Copy.SpeedLimitMBps
	logger = logger.With(logging.String("destination_dir", destDir), logging.Float64("limit_mbps", limit))

	var result Result
	switch {
	case info.Mode().IsRegular():
		destFile := filepath.Join(destDir, folder+filepath.Ext(base))
		if fileutil.Exists(destFile) {
			logger.Info("destination exists", logging.String("destination", destFile))
			return m.record(ctx, logger, item, Result{Outcome: OutcomeSkipped, Message: MessageDestinationExists, Source: source, Destination: destFile})
		}
		err = m.copier.Copy(ctx, source, destFile, item.Hash, limit)
		result = Result{Outcome: OutcomeSuccess, Source: source, Destination: destFile}
	case info.IsDir():
		var copied int
		copied, err = m.copier.CopyTree(ctx, source, destDir, folder, item.Hash, limit)
		if err == nil && copied == 0 {
			logger.Warn("no video files found", logging.String("source", source))
			return m.record(ctx, logger, item, Result{Outcome: OutcomeSkipped, Message: MessageNoVideo, Source: source, Destination: destDir})
		}
		result = Result{Outcome: OutcomeSuccess, Source: source, Destination: destDir}
	default:
		logger.Error("source is neither file nor directory", logging.String("source", source))
		return m.record(ctx, logger, item, Result{Outcome: OutcomeError, Message: MessageInvalidSource, Source: source})
	}

	switch {
	case err == nil:
	case errors.Is(err, copyengine.ErrCancelled), errors.Is(err, copyengine.ErrBusy):
		logger.Info("move stopped before completion",
			logging.String(logging.FieldEventType, "move_cancelled"),
			logging.String("reason", err.Error()),
		)
		return Result{Outcome: OutcomeCancelled, Message: err.Error(), Source: source}
	default:
		logging.ErrorWithContext(logger, "move failed", "move_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check library volume space and permissions"),
			logging.String(logging.FieldImpact, "item recorded as error"),
		)
		return m.record(ctx, logger, item, Result{Outcome: OutcomeError, Message: err.Error()})
	}

	result = m.record(ctx, logger, item, result)
	logger.Info("move completed", logging.String("destination", result.Destination))
	notifications.PublishAsync(m.notifier, m.logger, notifications.EventMoved, notifications.Payload{
		"title":       title,
		"year":        year,
		"destination": result.Destination,
	})
	return result
}

func (m *Mover) record(ctx context.Context, logger *slog.Logger, item torrent.Item, result Result) Result {
	status := store.HistoryError
	switch result.Outcome {
	case OutcomeSuccess:
		status = store.HistorySuccess
	case OutcomeSkipped:
		status = store.HistorySkipped
	}
	rec := &store.HistoryRecord{
		TorrentName: item.Name,
		SourcePath:  result.Source,
		DestPath:    result.Destination,
		Status:      status,
		Message:     result.Message,
	}
	if err := m.ledger.AppendHistory(context.WithoutCancel(ctx), rec); err != nil {
		logging.ErrorWithContext(logger, "append move history failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status will not reflect this attempt"),
		)
		return result
	}
	result.Recorded = true
	return result
}

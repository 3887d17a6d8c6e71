package copyengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"plexmover/internal/fileutil"
	"plexmover/internal/logging"
	"plexmover/internal/services"
)

const (
	// ChunkSize is the unit of work between cancel checks and throttle sleeps.
	ChunkSize = 1024 * 1024

	defaultProgressInterval = 500 * time.Millisecond
	defaultGracePeriod      = 2 * time.Second

	bytesPerMB = 1024 * 1024
)

var (
	// ErrCancelled is returned when a copy stops because of Stop or context
	// cancellation. The partial destination has been removed.
	ErrCancelled = errors.New("copy cancelled")
	// ErrBusy is returned when a copy is requested for a key that is already copying.
	ErrBusy = errors.New("copy already in progress")
)

// JobStatus is the lifecycle of a copy job.
type JobStatus string

const (
	JobCopying JobStatus = "copying"
	JobDone    JobStatus = "done"
	JobError   JobStatus = "error"
)

// Job is the published progress of one copy.
type Job struct {
	Percent   float64   `json:"percent"`
	SpeedMBps float64   `json:"speed"`
	Status    JobStatus `json:"status"`
}

type jobRecord struct {
	job        Job
	generation uint64
}

// Engine runs copies and tracks their progress.
type Engine struct {
	logger           *slog.Logger
	chunkSize        int
	progressInterval time.Duration
	gracePeriod      time.Duration
	sleep            func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	jobs       map[string]jobRecord
	cancels    map[string]struct{}
	generation uint64
}

// Option customises an Engine.
type Option func(*Engine)

// WithChunkSize overrides the copy chunk size.
func WithChunkSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.chunkSize = size
		}
	}
}

// WithGracePeriod overrides how long a done job stays visible.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.gracePeriod = d
		}
	}
}

// WithProgressInterval overrides the minimum gap between progress publishes.
func WithProgressInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.progressInterval = d
		}
	}
}

// New constructs an Engine.
func New(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:           logging.NewComponentLogger(logger, "copyengine"),
		chunkSize:        ChunkSize,
		progressInterval: defaultProgressInterval,
		gracePeriod:      defaultGracePeriod,
		sleep:            sleepContext,
		jobs:             make(map[string]jobRecord),
		cancels:          make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of every tracked job keyed by torrent hash.
func (e *Engine) Snapshot() map[string]Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]Job, len(e.jobs))
	for key, rec := range e.jobs {
		out[key] = rec.job
	}
	return out
}

// Get returns the job for key.
func (e *Engine) Get(key string) (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.jobs[key]
	return rec.job, ok
}

// IsCopying reports whether key has a job in the copying state.
func (e *Engine) IsCopying(key string) bool {
	job, ok := e.Get(key)
	return ok && job.Status == JobCopying
}

// ActiveCount returns the number of jobs currently copying.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked()
}

func (e *Engine) activeLocked() int {
	count := 0
	for _, rec := range e.jobs {
		if rec.job.Status == JobCopying {
			count++
		}
	}
	return count
}

// Stop requests cancellation of the copy for key. It reports false when no
// copy for key is running.
func (e *Engine) Stop(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.jobs[key]
	if !ok || rec.job.Status != JobCopying {
		return false
	}
	e.cancels[key] = struct{}{}
	e.logger.Info("stop requested", logging.String(logging.FieldHash, key))
	return true
}

func (e *Engine) cancelRequested(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.cancels[key]
	return ok
}

// begin registers a copying job and returns its generation.
func (e *Engine) begin(key string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rec, ok := e.jobs[key]; ok && rec.job.Status == JobCopying {
		return 0, ErrBusy
	}
	delete(e.cancels, key)
	e.generation++
	e.jobs[key] = jobRecord{job: Job{Status: JobCopying}, generation: e.generation}
	return e.generation, nil
}

func (e *Engine) publish(key string, generation uint64, job Job) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rec, ok := e.jobs[key]; ok && rec.generation != generation {
		return
	}
	e.jobs[key] = jobRecord{job: job, generation: generation}
}

// clear drops the job and any pending stop request, unless a newer copy for
// key has started since.
func (e *Engine) clear(key string, generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rec, ok := e.jobs[key]; ok && rec.generation != generation {
		return
	}
	delete(e.jobs, key)
	delete(e.cancels, key)
}

// fairShare divides limit by the number of jobs copying right now.
func (e *Engine) fairShare(limit float64) float64 {
	e.mu.Lock()
	active := e.activeLocked()
	e.mu.Unlock()
	return limit / float64(max(1, active))
}

// Copy streams source to destination under key, throttled to limitMBps
// shared across all active copies. A non-positive limit disables throttling.
func (e *Engine) Copy(ctx context.Context, source, destination, key string, limitMBps float64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	size, err := statSource(source)
	if err != nil {
		return err
	}

	generation, err := e.begin(key)
	if err != nil {
		return err
	}
	logger := e.logger.With(logging.String(logging.FieldHash, key))
	logger.Info("copy started",
		logging.String("source", source),
		logging.String("destination", destination),
		logging.Int64("bytes", size),
		logging.Float64("limit_mbps", limitMBps),
	)

	t := e.newTransfer(key, generation, size, limitMBps, logger)
	err = e.stream(ctx, t, source, destination)
	return e.settle(t, source, destination, err)
}

func statSource(source string) (int64, error) {
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, services.Wrap(services.ErrNotFound, "copyengine", "stat source", source, err)
		}
		return 0, services.Wrap(services.ErrTransferFailure, "copyengine", "stat source", source, err)
	}
	if !info.Mode().IsRegular() {
		return 0, services.Wrap(services.ErrValidation, "copyengine", "stat source", source+" is not a regular file", nil)
	}
	return info.Size(), nil
}

// transfer is the progress state of one job. A job may span several files;
// copied and total count bytes across all of them.
type transfer struct {
	key         string
	generation  uint64
	total       int64
	copied      int64
	limit       float64
	start       time.Time
	lastPublish time.Time
	sampler     *logging.ProgressSampler
	logger      *slog.Logger
}

func (e *Engine) newTransfer(key string, generation uint64, total int64, limit float64, logger *slog.Logger) *transfer {
	now := time.Now()
	return &transfer{
		key:         key,
		generation:  generation,
		total:       total,
		limit:       limit,
		start:       now,
		lastPublish: now,
		sampler:     logging.NewProgressSampler(0),
		logger:      logger,
	}
}

// settle publishes the terminal state of t. destination is the file that was
// being written when err occurred.
func (e *Engine) settle(t *transfer, source, destination string, err error) error {
	switch {
	case err == nil:
		e.finish(t.key, t.generation)
		t.logger.Info("copy completed", logging.Int64("bytes", t.copied))
		return nil
	case errors.Is(err, ErrCancelled):
		e.cleanupPartial(destination, t.logger)
		e.clear(t.key, t.generation)
		t.logger.Info("copy cancelled",
			logging.String(logging.FieldEventType, "copy_cancelled"),
			logging.Int64("bytes", t.copied),
		)
		return err
	default:
		e.publish(t.key, t.generation, Job{Status: JobError})
		logging.WarnWithContext(t.logger, "copy failed", "copy_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the library volume"),
			logging.String(logging.FieldImpact, "partial file left in place"),
		)
		return services.Wrap(services.ErrTransferFailure, "copyengine", "copy", source, err)
	}
}

// stream copies one file as part of t. The throttle share is recomputed on
// every chunk so a copy slows down when another starts and speeds up again
// when it ends.
func (e *Engine) stream(ctx context.Context, t *transfer, source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	out, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = out.Close()
		}
	}()

	buf := make([]byte, e.chunkSize)
	for {
		if e.cancelRequested(t.key) {
			return ErrCancelled
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
		}

		nr, readErr := in.Read(buf)
		if nr > 0 {
			nw, writeErr := out.Write(buf[:nr])
			if writeErr != nil {
				return fmt.Errorf("write destination: %w", writeErr)
			}
			if nw != nr {
				return fmt.Errorf("write destination: %w", io.ErrShortWrite)
			}
			t.copied += int64(nw)
			if err := e.advance(ctx, t); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read source: %w", readErr)
		}
	}

	closed = true
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}

// advance publishes progress for t and sleeps as long as the job is ahead of
// its fair share of the limit.
func (e *Engine) advance(ctx context.Context, t *transfer) error {
	now := time.Now()
	elapsed := now.Sub(t.start).Seconds()
	copiedMB := float64(t.copied) / bytesPerMB
	percent := 100.0
	if t.total > 0 {
		percent = min(100, float64(t.copied)/float64(t.total)*100)
	}

	if now.Sub(t.lastPublish) >= e.progressInterval {
		speed := 0.0
		if elapsed > 0 {
			speed = copiedMB / elapsed
		}
		e.publish(t.key, t.generation, Job{Percent: round(percent, 1), SpeedMBps: round(speed, 2), Status: JobCopying})
		t.lastPublish = now
		if t.sampler.ShouldLog(percent) {
			t.logger.Debug("copy progress", logging.Float64("percent", round(percent, 1)), logging.Float64("speed_mbps", round(speed, 2)))
		}
	}

	if t.limit <= 0 {
		return nil
	}
	expected := copiedMB / e.fairShare(t.limit)
	if expected <= elapsed {
		return nil
	}
	wait := time.Duration((expected - elapsed) * float64(time.Second))
	if err := e.sleep(ctx, wait); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

func (e *Engine) finish(key string, generation uint64) {
	e.mu.Lock()
	if rec, ok := e.jobs[key]; !ok || rec.generation == generation {
		e.jobs[key] = jobRecord{job: Job{Percent: 100, Status: JobDone}, generation: generation}
		delete(e.cancels, key)
	}
	e.mu.Unlock()
	if e.gracePeriod == 0 {
		e.clear(key, generation)
		return
	}
	time.AfterFunc(e.gracePeriod, func() {
		e.clear(key, generation)
	})
}

func (e *Engine) cleanupPartial(destination string, logger *slog.Logger) {
	if err := os.Remove(destination); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error("remove partial file failed", logging.String("path", destination), logging.Error(err))
		return
	}
	if err := fileutil.RemoveDirIfEmpty(filepath.Dir(destination)); err != nil {
		logger.Error("remove empty destination directory failed", logging.String("path", filepath.Dir(destination)), logging.Error(err))
	}
}

func round(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

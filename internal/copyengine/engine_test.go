package copyengine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"plexmover/internal/services"
	"plexmover/internal/testsupport"
)

func TestCopyPublishesDoneAndClearsAfterGrace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	dst := filepath.Join(dir, "out", "Heat (1995).mkv")
	testsupport.WriteFile(t, src, 3*ChunkSize+17)

	engine := New(nil, WithGracePeriod(100*time.Millisecond))
	if err := engine.Copy(context.Background(), src, dst, "h1", 0); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	want, _ := os.ReadFile(src)
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Fatal("destination content mismatch")
	}

	job, ok := engine.Get("h1")
	if !ok || job.Status != JobDone || job.Percent != 100 {
		t.Fatalf("expected done job, got %#v (%v)", job, ok)
	}
	if engine.ActiveCount() != 0 {
		t.Fatalf("expected no active copies, got %d", engine.ActiveCount())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := engine.Get("h1"); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("done job was not removed after the grace period")
}

func TestCopyMissingSourceIsNotFound(t *testing.T) {
	engine := New(nil)
	err := engine.Copy(context.Background(), filepath.Join(t.TempDir(), "nope.mkv"), filepath.Join(t.TempDir(), "x.mkv"), "h", 0)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := engine.Get("h"); ok {
		t.Fatal("no job should be published for a missing source")
	}
}

// blockingSleep parks the worker inside the throttle so tests can observe the
// copying state deterministically.
func blockingSleep(entered chan<- struct{}, release <-chan struct{}) func(context.Context, time.Duration) error {
	var once sync.Once
	return func(ctx context.Context, _ time.Duration) error {
		once.Do(func() { close(entered) })
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func TestStopCancelsAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	destDir := filepath.Join(dir, "library", "Heat (1995)")
	dst := filepath.Join(destDir, "Heat (1995).mkv")
	testsupport.WriteFile(t, src, 4*ChunkSize)

	entered := make(chan struct{})
	release := make(chan struct{})
	engine := New(nil)
	engine.sleep = blockingSleep(entered, release)

	if engine.Stop("h1") {
		t.Fatal("Stop must report false when nothing is copying")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Copy(context.Background(), src, dst, "h1", 1)
	}()

	<-entered
	if !engine.IsCopying("h1") || engine.ActiveCount() != 1 {
		t.Fatal("expected an active copy")
	}
	if err := engine.Copy(context.Background(), src, dst, "h1", 1); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for concurrent copy, got %v", err)
	}
	if !engine.Stop("h1") {
		t.Fatal("Stop must report true for a running copy")
	}
	close(release)

	err := <-errCh
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatalf("partial file must be removed, stat err = %v", statErr)
	}
	if _, statErr := os.Stat(destDir); !os.IsNotExist(statErr) {
		t.Fatalf("empty destination dir must be removed, stat err = %v", statErr)
	}
	if _, ok := engine.Get("h1"); ok {
		t.Fatal("cancelled job must be cleared")
	}
	if engine.cancelRequested("h1") {
		t.Fatal("cancel flag must be cleared")
	}
}

func TestCancelKeepsNonEmptyParent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	destDir := filepath.Join(dir, "library", "Heat (1995)")
	testsupport.WriteFile(t, src, 2*ChunkSize)
	testsupport.WriteFile(t, filepath.Join(destDir, "poster.jpg"), 10)

	entered := make(chan struct{})
	release := make(chan struct{})
	engine := New(nil)
	engine.sleep = blockingSleep(entered, release)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Copy(ctx, src, filepath.Join(destDir, "Heat (1995).mkv"), "h2", 1)
	}()
	<-entered
	cancel()

	if err := <-errCh; !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled on context cancel, got %v", err)
	}
	if _, err := os.Stat(destDir); err != nil {
		t.Fatalf("non-empty parent must survive: %v", err)
	}
	close(release)
}

func TestCopyFailureKeepsErrorJob(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	testsupport.WriteFile(t, src, 1024)
	blocker := filepath.Join(dir, "blocker")
	testsupport.WriteFile(t, blocker, 1)

	engine := New(nil)
	err := engine.Copy(context.Background(), src, filepath.Join(blocker, "dest.mkv"), "h3", 0)
	if !errors.Is(err, services.ErrTransferFailure) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	job, ok := engine.Get("h3")
	if !ok || job.Status != JobError {
		t.Fatalf("expected error job to persist, got %#v (%v)", job, ok)
	}
	if engine.ActiveCount() != 0 {
		t.Fatal("error job must not count as active")
	}

	okDest := filepath.Join(dir, "ok.mkv")
	if err := engine.Copy(context.Background(), src, okDest, "h3", 0); err != nil {
		t.Fatalf("retry after error: %v", err)
	}
	if job, _ := engine.Get("h3"); job.Status != JobDone {
		t.Fatalf("retry must supersede the error job, got %#v", job)
	}
}

func TestThrottleRespectsFairShare(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	const (
		limit = 8.0
		size  = 2 * ChunkSize
		k     = 2
	)
	dir := t.TempDir()
	engine := New(nil, WithGracePeriod(0))

	var wg sync.WaitGroup
	errs := make(chan error, k)
	start := time.Now()
	for i := 0; i < k; i++ {
		src := filepath.Join(dir, "src", string(rune('a'+i))+".mkv")
		testsupport.WriteFile(t, src, size)
		dst := filepath.Join(dir, "dst", string(rune('a'+i))+".mkv")
		key := "k" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- engine.Copy(context.Background(), src, dst, key, limit)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Copy: %v", err)
		}
	}

	elapsed := time.Since(start).Seconds()
	totalMB := float64(k*size) / bytesPerMB
	rate := totalMB / elapsed
	if rate > limit*1.1 {
		t.Fatalf("aggregate rate %.2f MB/s exceeds limit %.2f", rate, limit)
	}
}

func TestFairShareFollowsActiveJobs(t *testing.T) {
	const limit = 12.0
	engine := New(nil)
	if got := engine.fairShare(limit); got != limit {
		t.Fatalf("idle share = %v, want %v", got, limit)
	}

	engine.jobs["a"] = jobRecord{job: Job{Status: JobCopying}, generation: 1}
	if got := engine.fairShare(limit); got != limit {
		t.Fatalf("one copy share = %v, want %v", got, limit)
	}
	engine.jobs["b"] = jobRecord{job: Job{Status: JobCopying}, generation: 2}
	engine.jobs["c"] = jobRecord{job: Job{Status: JobDone, Percent: 100}, generation: 3}
	if got := engine.fairShare(limit); got != limit/2 {
		t.Fatalf("two copy share = %v, want %v", got, limit/2)
	}
	delete(engine.jobs, "b")
	if got := engine.fairShare(limit); got != limit {
		t.Fatalf("share after second copy ended = %v, want %v", got, limit)
	}
}

// The throttle wait after each chunk is copiedMB/share minus elapsed time.
// With a 1 MB/s limit and a sleep that returns at once, elapsed stays near
// zero, so the recorded waits expose the share used on each chunk.
func TestThrottleShareRecomputedEachChunk(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	testsupport.WriteFile(t, src, 4*ChunkSize)

	engine := New(nil, WithGracePeriod(0))
	var waits []time.Duration
	engine.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		engine.mu.Lock()
		switch len(waits) {
		case 1:
			engine.jobs["other"] = jobRecord{job: Job{Status: JobCopying}, generation: 99}
		case 2:
			delete(engine.jobs, "other")
		}
		engine.mu.Unlock()
		return nil
	}

	if err := engine.Copy(context.Background(), src, filepath.Join(dir, "dst.mkv"), "solo", 1); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if len(waits) != 4 {
		t.Fatalf("expected a throttle wait per chunk, got %v", waits)
	}
	// 1 MB alone, 2 MB at half share, then 3 MB and 4 MB alone again.
	want := []time.Duration{time.Second, 4 * time.Second, 3 * time.Second, 4 * time.Second}
	for i, w := range want {
		if diff := w - waits[i]; diff < 0 || diff > 200*time.Millisecond {
			t.Fatalf("chunk %d wait = %v, want about %v (all waits %v)", i+1, waits[i], w, waits)
		}
	}
}

func TestSingleCopyThrottled(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	testsupport.WriteFile(t, src, 2*ChunkSize)

	engine := New(nil, WithGracePeriod(0))
	start := time.Now()
	if err := engine.Copy(context.Background(), src, filepath.Join(dir, "dst.mkv"), "solo", 8); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 225*time.Millisecond {
		t.Fatalf("2 MiB at 8 MB/s finished in %v; throttle not applied", elapsed)
	}
}

func TestSnapshotReturnsCopies(t *testing.T) {
	engine := New(nil)
	engine.jobs["a"] = jobRecord{job: Job{Percent: 10, Status: JobCopying}, generation: 1}
	snap := engine.Snapshot()
	snap["a"] = Job{Percent: 99}
	if job, _ := engine.Get("a"); job.Percent != 10 {
		t.Fatal("snapshot mutation leaked into the engine")
	}
}

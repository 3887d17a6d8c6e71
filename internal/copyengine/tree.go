package copyengine

import (
	"context"
	"path/filepath"

	"plexmover/internal/fileutil"
	"plexmover/internal/logging"
	"plexmover/internal/services"
)

type treeFile struct {
	source      string
	destination string
}

// CopyTree copies every media file below sourceDir into destDir as
// baseName plus the file's extension. Destinations that already exist are
// skipped. The files share one job under key whose percent covers the bytes
// of the whole tree. It returns the number of files copied; zero means the
// source held no new media.
//
// On cancellation only the file in flight is removed; files already copied
// stay in destDir.
func (e *Engine) CopyTree(ctx context.Context, sourceDir, destDir, baseName, key string, limitMBps float64) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	files, err := fileutil.ListMediaFiles(sourceDir)
	if err != nil {
		return 0, services.Wrap(services.ErrTransferFailure, "copyengine", "scan source", sourceDir, err)
	}

	var pending []treeFile
	var total int64
	for _, src := range files {
		dest := filepath.Join(destDir, baseName+filepath.Ext(src))
		if fileutil.Exists(dest) {
			e.logger.Info("destination exists; skipping",
				logging.String(logging.FieldHash, key),
				logging.String("destination", dest),
			)
			continue
		}
		size, err := statSource(src)
		if err != nil {
			return 0, err
		}
		total += size
		pending = append(pending, treeFile{source: src, destination: dest})
	}
	if len(pending) == 0 {
		return 0, nil
	}

	generation, err := e.begin(key)
	if err != nil {
		return 0, err
	}
	logger := e.logger.With(logging.String(logging.FieldHash, key))
	logger.Info("copy started",
		logging.String("source", sourceDir),
		logging.String("destination", destDir),
		logging.Int("files", len(pending)),
		logging.Int64("bytes", total),
		logging.Float64("limit_mbps", limitMBps),
	)

	t := e.newTransfer(key, generation, total, limitMBps, logger)
	for i, f := range pending {
		if err := e.stream(ctx, t, f.source, f.destination); err != nil {
			return i, e.settle(t, f.source, f.destination, err)
		}
	}
	return len(pending), e.settle(t, sourceDir, destDir, nil)
}

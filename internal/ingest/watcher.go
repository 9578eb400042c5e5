package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"knowledge-butler/internal/contextutil"
)

// supportedExtensions lists the upload file types the watcher picks up.
var supportedExtensions = map[string]bool{
	".pdf":      true,
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
}

// Watcher periodically scans the upload directory and ingests any supported
// file it finds. The pipeline's content-hash check makes repeated scans of
// the same file a no-op. Files whose ingestion fails are remembered by
// modification time and skipped until they change, so a corrupt file does not
// produce an error log on every tick.
type Watcher struct {
	pipeline *Pipeline
	dir      string
	interval time.Duration

	mu     sync.Mutex
	failed map[string]time.Time
}

// NewWatcher creates a watcher over dir scanning every interval.
func NewWatcher(pipeline *Pipeline, dir string, interval time.Duration) *Watcher {
	return &Watcher{
		pipeline: pipeline,
		dir:      dir,
		interval: interval,
		failed:   make(map[string]time.Time),
	}
}

// Run scans once immediately, then on every tick until the context is
// cancelled.
func (w *Watcher) Run(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "ingestion watcher started", "dir", w.dir, "interval", w.interval.String())

	w.Scan(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "ingestion watcher stopped")
			return
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan ingests every supported file in the upload directory. Per-file errors
// are logged and do not stop the scan.
func (w *Watcher) Scan(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.WarnContext(ctx, "failed to read upload directory", "dir", w.dir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !supportedExtensions[filepath.Ext(entry.Name())] {
			continue
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		path := filepath.Join(w.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			logger.WarnContext(ctx, "failed to stat file", "path", path, "error", err)
			continue
		}
		if w.failedUnchanged(path, info.ModTime()) {
			continue
		}

		result, err := w.pipeline.Ingest(ctx, path)
		if err != nil {
			logger.ErrorContext(ctx, "failed to ingest file", "path", path, "error", err)
			w.markFailed(path, info.ModTime())
			continue
		}
		w.clearFailed(path)
		if !result.Reused {
			logger.InfoContext(ctx, "watcher ingested file", "path", path, "chunks", result.Chunks)
		}
	}
}

func (w *Watcher) failedUnchanged(path string, modTime time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.failed[path]
	return ok && last.Equal(modTime)
}

func (w *Watcher) markFailed(path string, modTime time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failed[path] = modTime
}

func (w *Watcher) clearFailed(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.failed, path)
}

package corpus

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/levelshelf/levelshelf/internal/core/domain"
	"github.com/levelshelf/levelshelf/internal/core/ports/driving"
	"github.com/levelshelf/levelshelf/internal/logger"
)

const debounceDelay = 500 * time.Millisecond

// Watcher monitors a corpus file and re-ingests it whenever the file is
// written. Re-ingestion is safe to repeat because ingestion is idempotent.
type Watcher struct {
	path     string
	ingestor driving.Ingestor

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher for the given corpus file.
func NewWatcher(path string, ingestor driving.Ingestor) *Watcher {
	return &Watcher{path: path, ingestor: ingestor}
}

// Start blocks watching the corpus file until the context is cancelled.
// The parent directory is watched rather than the file itself so that
// editors that replace the file via rename are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}

	logger.Debug("corpus: watching %s", w.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.scheduleIngest(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("corpus: watch error: %v", err)
		}
	}
}

// scheduleIngest debounces bursts of filesystem events into one ingest run.
func (w *Watcher) scheduleIngest(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.ingest(ctx); err != nil {
			logger.Warn("corpus: re-ingest failed: %v", err)
		}
	})
}

func (w *Watcher) ingest(ctx context.Context) error {
	entries, err := LoadFile(w.path)
	if err != nil {
		return err
	}

	summary, err := w.ingestor.Ingest(ctx, entries)
	if err != nil {
		return err
	}
	logSummary(summary)
	return nil
}

func logSummary(summary *domain.IngestSummary) {
	logger.Info("corpus: ingested batch %s: %d inserted, %d updated, %d unchanged, %d failed",
		summary.BatchID, summary.Inserted, summary.Updated, summary.Unchanged, summary.FailedCount)
}

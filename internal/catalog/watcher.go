package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/logger"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a catalog file into a Store whenever the file changes.
type Watcher struct {
	path    string
	store   *Store
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewWatcher starts watching path. The parent directory is watched too so
// that editors replacing the file atomically are noticed.
func NewWatcher(path string, store *Store, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching catalog directory: %w", err)
	}

	return &Watcher{
		path:    path,
		store:   store,
		watcher: fw,
		logger:  logger.WithFields(log, zap.String("catalog", path)),
	}, nil
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	w.logger.Info("catalog watcher started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("catalog watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("catalog watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	c, err := Load(w.path)
	if err != nil {
		w.logger.Error("failed to reload catalog, keeping current", zap.Error(err))
		return
	}

	w.store.Replace(c)
	w.logger.Info("catalog reloaded",
		zap.Int("positions", len(c.Positions)),
		zap.Int("applicants", len(c.Applicants)),
	)
}

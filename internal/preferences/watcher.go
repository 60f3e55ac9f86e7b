package preferences

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits after the last write
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a Store when its file is edited outside the process
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(keys []string)
	logger   *zap.Logger
}

// NewWatcher watches the store's directory. Editors commonly replace files
// by rename, so the directory is watched and events are filtered by name.
func NewWatcher(store *Store, debounce time.Duration, onChange func(keys []string), logger *zap.Logger) (*Watcher, error) {
	if store.Path() == "" {
		return nil, fmt.Errorf("memory store cannot be watched")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(store.Path())); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", store.Path(), err)
	}

	return &Watcher{
		store:    store,
		watcher:  fw,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Run delivers change notifications until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	target := filepath.Clean(w.store.Path())
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("preferences watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	changed, err := w.store.Reload()
	if err != nil {
		w.logger.Warn("preferences reload failed", zap.Error(err))
		return
	}
	if len(changed) > 0 && w.onChange != nil {
		w.onChange(changed)
	}
}

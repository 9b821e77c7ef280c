// Package watch rebuilds scripts when their sources change on disk. A
// Watcher debounces filesystem events into rebuild triggers; a Runner
// drains those triggers through a rate limiter and recompiles.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/forge/errors"
)

// Watcher watches source directories and coalesces rapid file changes
// into a single trigger per quiet period.
type Watcher struct {
	fs       *fsnotify.Watcher
	exts     []string
	debounce time.Duration
	logger   *zap.SugaredLogger

	triggers chan []string

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
}

// NewWatcher watches the given directories (recursively when asked) for
// changes to files carrying one of the given extensions.
func NewWatcher(dirs []string, exts []string, recursive bool, debounce time.Duration, logger *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating filesystem watcher")
	}

	w := &Watcher{
		fs:       fsw,
		exts:     exts,
		debounce: debounce,
		logger:   logger.Named("watch"),
		triggers: make(chan []string, 1),
		pending:  make(map[string]struct{}),
	}

	for _, dir := range dirs {
		if err := w.addDir(dir, recursive); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addDir(dir string, recursive bool) error {
	if !recursive {
		if err := w.fs.Add(dir); err != nil {
			return errors.Wrapf(err, "watching %s", dir)
		}
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walking %s", dir)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return errors.Wrapf(err, "watching %s", path)
		}
		return nil
	})
}

// Triggers delivers batches of changed source paths, one batch per quiet
// period. The channel closes when the watch loop stops.
func (w *Watcher) Triggers() <-chan []string {
	return w.triggers
}

// Start runs the event loop until ctx is cancelled or the underlying
// watcher closes.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.triggers)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.logger.Debugw("source changed", "file", event.Name, "op", event.Op.String())
			w.schedule(event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("watch error", "error", err)
		}
	}
}

func (w *Watcher) matches(path string) bool {
	ext := filepath.Ext(path)
	for _, want := range w.exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// schedule records the change and arms (or re-arms) the debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(changed) == 0 {
		return
	}

	// Drop the batch rather than block the timer goroutine if the
	// consumer is mid-rebuild; the next change re-triggers.
	select {
	case w.triggers <- changed:
	default:
		w.logger.Debugw("rebuild already pending, dropping trigger", "changed", len(changed))
	}
}

// Close stops watching. The loop exits once the event channel drains.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

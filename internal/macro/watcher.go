package macro

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period used when a Watcher is given none.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a Registry when its macro file changes on disk. It watches
// the file's directory so editors that replace the file by rename are seen.
// Watcher implements the Start/Stop service contract.
type Watcher struct {
	registry *Registry
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	debounce *debouncer
	target   string

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewWatcher creates a Watcher for registry's file.
//
// Precondition: registry.Path() must be non-empty; logger must be non-nil.
func NewWatcher(registry *Registry, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if registry.Path() == "" {
		return nil, errors.New("macro watcher needs a macro file path")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	target, err := filepath.Abs(registry.Path())
	if err != nil {
		return nil, fmt.Errorf("resolving macro path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		registry: registry,
		logger:   logger,
		watcher:  fw,
		debounce: newDebouncer(debounce),
		target:   target,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start watches until Stop is called. Reload failures are logged and the
// previous macros stay active.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.target)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Info("macro watcher started",
		zap.String("path", w.target),
	)

	for {
		select {
		case <-w.stopCh:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("macro file event",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()),
			)
			w.debounce.trigger(func() {
				_ = w.registry.Reload()
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("macro watcher error", zap.Error(err))
		}
	}
}

// Stop ends Start, cancels a pending reload and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.debounce.stop()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn("closing macro watcher", zap.Error(err))
		}
	})
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == w.target
}

// debouncer runs the most recent callback once no trigger has arrived for
// interval.
type debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		if d.stopped {
			cb = nil
		}
		d.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}

package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a rules file for changes and reloads the gate.
// Change events are debounced to prevent reload storms from editors that
// write files in multiple operations.
type Watcher struct {
	gate     *RuleGate
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	ready    chan struct{}

	mu      sync.Mutex
	running bool
}

// NewWatcher creates a watcher that reloads gate from the rules file at path.
func NewWatcher(gate *RuleGate, path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if gate == nil {
		return nil, fmt.Errorf("gate cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		gate:     gate,
		path:     path,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger.With("component", "policy.watcher"),
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once Watch has armed the filesystem watch. File changes
// made before Ready is closed may not be observed.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Watch blocks, reloading the gate whenever the rules file changes, until the
// context is cancelled. A failed reload keeps the previous rule set in effect.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	// Watch the parent directory so the file can be replaced atomically
	// (rename over) without losing the watch.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}

	w.logger.Info("policy watcher started",
		"path", w.path,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("policy watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Restart the debounce window on every relevant event.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			if err := w.gate.LoadFile(w.path); err != nil {
				w.logger.Error("failed to reload policy rules", "error", err)
				continue
			}
			w.logger.Info("policy rules reloaded", "path", w.path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("policy watcher error", "error", err)
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc re-reads the property sources after a file change.
type ReloadFunc func() (map[string]string, error)

// WatcherConfig configures a properties Watcher
type WatcherConfig struct {
	// Paths are the files whose changes trigger a reload
	Paths []string
	// Reload produces the new property set
	Reload ReloadFunc
	// DebounceDelay coalesces bursts of writes (default: 100ms)
	DebounceDelay time.Duration
	Logger        *slog.Logger
}

// Watcher reloads Properties when any watched file changes.
// Parent directories are watched so editors that replace files by rename
// are still seen.
type Watcher struct {
	config  WatcherConfig
	props   *Properties
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	files   map[string]struct{}

	pendingMu sync.Mutex
	pending   bool

	reloads chan struct{}
}

// NewWatcher creates a watcher that updates props in place
func NewWatcher(props *Properties, config WatcherConfig) (*Watcher, error) {
	if config.Reload == nil {
		return nil, fmt.Errorf("watcher: reload function is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 100 * time.Millisecond
	}

	files := make(map[string]struct{}, len(config.Paths))
	for _, p := range config.Paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		files[abs] = struct{}{}
	}

	return &Watcher{
		config:  config,
		props:   props,
		watcher: fsw,
		logger:  logger,
		files:   files,
		reloads: make(chan struct{}, 1),
	}, nil
}

// Reloaded signals after each successful reload. Signals are dropped when
// nobody is listening.
func (w *Watcher) Reloaded() <-chan struct{} {
	return w.reloads
}

// Start begins watching. Event processing stops when ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]struct{})
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for d := range dirs {
		if err := w.watcher.Add(d); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("Properties watcher started",
		"files", len(w.files),
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if _, ok := w.files[filepath.Clean(event.Name)]; !ok {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()

	w.logger.Debug("Properties file change detected",
		"path", event.Name,
		"op", event.Op.String())
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if !w.pending {
		w.pendingMu.Unlock()
		return
	}
	w.pending = false
	w.pendingMu.Unlock()

	values, err := w.config.Reload()
	if err != nil {
		// Keep serving the previous properties.
		w.logger.Warn("Failed to reload properties", "error", err)
		return
	}
	w.props.Replace(values)
	w.logger.Info("Properties reloaded", "count", len(values))

	select {
	case w.reloads <- struct{}{}:
	default:
	}
}

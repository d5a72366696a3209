package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/openfroyo/urigraph/pkg/telemetry"
)

// DefaultDebounce is the quiet period before a changed document reloads.
const DefaultDebounce = 500 * time.Millisecond

// Watcher keeps a document current as its file changes. A failed reload
// keeps the previous document.
type Watcher struct {
	loader  *Loader
	path    string
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	delay   time.Duration

	mu       sync.RWMutex
	current  *Document
	onReload func(*Document, error)

	watcher *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithReloadHook is called after every reload attempt.
func WithReloadHook(fn func(*Document, error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// WithWatcherMetrics records reload outcomes.
func WithWatcherMetrics(m *telemetry.Metrics) WatcherOption {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// NewWatcher loads the document at path. Call Start to follow changes.
func NewWatcher(ctx context.Context, loader *Loader, path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	w := &Watcher{
		loader: loader,
		path:   abs,
		logger: loader.logger.With().Str("path", abs).Logger(),
		delay:  DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	doc, err := loader.Load(ctx, abs)
	if err != nil {
		return nil, err
	}
	w.current = doc
	return w, nil
}

// Current returns the most recently loaded document.
func (w *Watcher) Current() *Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Template looks name up in the current document.
func (w *Watcher) Template(name string) (any, bool) {
	return w.Current().Template(name)
}

// Start watches the document's directory until ctx is done. Editors often
// replace files by rename, so the directory is watched rather than the
// file.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.watcher = watcher

	go w.processEvents(ctx)

	w.logger.Info().Msg("Started watching document")
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug().
				Str("op", event.Op.String()).
				Msg("Document changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(w.delay, func() {
				w.reload(ctx)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	doc, err := w.loader.Load(ctx, w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to reload document, keeping previous version")
		w.metrics.RecordDocumentReload("error")
	} else {
		w.mu.Lock()
		w.current = doc
		w.mu.Unlock()
		w.logger.Info().Int("makes", len(doc.Makes())).Msg("Document reloaded")
		w.metrics.RecordDocumentReload("ok")
	}

	if w.onReload != nil {
		w.onReload(doc, err)
	}
}

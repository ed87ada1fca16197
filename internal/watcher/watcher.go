// Package watcher monitors the ingest directory for new OCR text
// drops using fsnotify. Events are debounced per path so a file
// still being written is reported once, after it settles.
package watcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gleanly/glean/internal/logger"
)

// settleDelay is how long a path must stay quiet before it is
// reported. OCR output files are written in bursts.
const settleDelay = 500 * time.Millisecond

// Watcher reports paths of files created or modified in a watched
// directory.
type Watcher struct {
	dir    string
	accept func(path string) bool

	mu       sync.Mutex
	pending  map[string]*time.Timer
	settled  chan string
	notifier *fsnotify.Watcher
}

// New creates a watcher over dir. accept filters reported paths;
// nil accepts everything.
func New(dir string, accept func(path string) bool) (*Watcher, error) {
	if accept == nil {
		accept = func(string) bool { return true }
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create watch directory %s: %w", dir, err)
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := notifier.Add(dir); err != nil {
		notifier.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:      dir,
		accept:   accept,
		pending:  make(map[string]*time.Timer),
		settled:  make(chan string, 64),
		notifier: notifier,
	}, nil
}

// Paths returns the channel of settled file paths.
func (w *Watcher) Paths() <-chan string {
	return w.settled
}

// Run dispatches events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.notifier.Close()
	logger.Info("watching %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.notifier.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.accept(event.Name) {
				continue
			}
			w.debounce(event.Name)
		case err, ok := <-w.notifier.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// debounce (re)arms the settle timer for path.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.settled <- path
	})
}

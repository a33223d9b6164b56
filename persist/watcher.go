package persist

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives the freshly loaded session after the watched file
// changes on disk.
type Handler func(session *Session)

// Watcher monitors a session file and reloads it when it changes,
// letting one process pick up history saved by another. Events are
// debounced so editors that write-then-rename trigger a single reload.
type Watcher struct {
	mu sync.Mutex

	path    string
	handler Handler

	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a change triggers a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the structured logger for watch diagnostics.
// The default discards everything.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher starts watching the session file at path. The handler is
// called with the reloaded session after each stable change. The parent
// directory must exist; the file itself may not yet.
func NewWatcher(path string, handler Handler, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		handler:  handler,
		fsw:      fsw,
		debounce: 100 * time.Millisecond,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	// Watch the directory, not the file: saves that replace the file
	// (write to temp, rename over) would drop a direct file watch.
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// loop consumes fsnotify events, debouncing changes to the session file.
func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watch error", "path", w.path, "error", err)
		}
	}
}

// reload loads the session file and invokes the handler.
func (w *Watcher) reload() {
	session, err := Load(w.path)
	if err != nil {
		w.logger.Debug("session reload failed", "path", w.path, "error", err)
		return
	}
	if session == nil {
		// File removed between event and reload.
		return
	}

	w.logger.Debug("session reloaded", "path", w.path,
		"undo", len(session.Undo), "redo", len(session.Redo))
	w.handler(session)
}

// Close stops watching. It is safe to call Close multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

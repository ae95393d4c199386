// Package watch re-runs a callback when watched source files change.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jward/commentgen/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before its callback runs.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc is invoked with the path of a file that changed.
type ChangeFunc func(ctx context.Context, path string) error

// Watcher watches a fixed set of files. Editors often replace a file
// rather than write it in place, so the parent directories are watched and
// events are filtered to the requested paths.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	onChange ChangeFunc
	debounce time.Duration
	log      *zap.SugaredLogger

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLogger sets the logger for change and error events.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(w *Watcher) {
		w.log = l
	}
}

// New creates a Watcher for paths. onChange runs once per quiet period
// for each changed file.
func New(paths []string, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]bool, len(paths)),
		onChange: onChange,
		debounce: DefaultDebounce,
		log:      zap.NewNop().Sugar(),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "resolve %s", p)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "watch directory %s", dir)
		}
	}
	return w, nil
}

// Run processes events until ctx is cancelled, then waits for in-flight
// callbacks and closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.stopTimers()
		w.wg.Wait()
		w.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.files[abs] {
				continue
			}
			w.log.Debugw("watched file changed", logger.FieldFile, abs, logger.FieldOp, event.Op.String())
			w.schedule(ctx, abs)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("file watcher error", logger.FieldError, err)
		}
	}
}

// schedule debounces rapid changes to one file.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		if ctx.Err() != nil {
			return
		}
		if err := w.onChange(ctx, path); err != nil {
			w.log.Errorw("regeneration failed", logger.FieldFile, path, logger.FieldError, err)
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
}

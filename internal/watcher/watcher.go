package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tagbrain/internal/logging"
	"tagbrain/internal/services"
)

// DefaultQuietPeriod is how long a path must see no events before it is reported.
const DefaultQuietPeriod = time.Second

// Sink receives settled file paths.
type Sink func(path string)

// Option configures a Watcher.
type Option func(*Watcher)

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.quiet = d
		}
	}
}

// WithExcludedDir ignores dir and everything below it. The daemon passes the
// library directory so files it publishes under source_dir are not rescanned.
func WithExcludedDir(dir string) Option {
	return func(w *Watcher) {
		if strings.TrimSpace(dir) != "" {
			w.exclude = filepath.Clean(dir)
		}
	}
}

// Watcher debounces filesystem events under a root directory.
type Watcher struct {
	root    string
	exclude string
	quiet   time.Duration
	sink    Sink
	logger  *slog.Logger
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// New prepares a watcher for root. Run starts it.
func New(root string, sink Sink, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	if root == "" {
		return nil, services.Wrap(services.ErrValidation, "watcher", "new", "root directory is required", nil)
	}
	if sink == nil {
		return nil, services.Wrap(services.ErrValidation, "watcher", "new", "sink is required", nil)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "watcher", "new", "create fsnotify watcher", err)
	}
	w := &Watcher{
		root:    filepath.Clean(root),
		quiet:   DefaultQuietPeriod,
		sink:    sink,
		logger:  logging.NewComponentLogger(logger, "watcher"),
		fsw:     fsw,
		pending: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is cancelled. Files already present at start are not
// reported; use a scan-all for those.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()
	if err := w.addTree(w.root, false); err != nil {
		return services.Wrap(services.ErrConfiguration, "watcher", "run", "watch source directory", err)
	}
	w.logger.Info("watching source directory",
		logging.String("source_dir", w.root),
		logging.String("excluded_dir", w.exclude),
		logging.Duration("quiet_period", w.quiet),
		logging.String(logging.FieldEventType, "watcher_started"),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "filesystem watch error", "watcher_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches if the library is large"),
				logging.String(logging.FieldImpact, "some new files may not be queued until the next scan-all"),
			)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if w.excluded(event.Name) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(event.Name, true); err != nil {
				logging.WarnWithContext(w.logger, "failed to watch new directory", "watcher_add_failed",
					logging.String("path", event.Name),
					logging.Error(err),
					logging.String(logging.FieldImpact, "files in this directory may not be queued"),
				)
			}
		}
		return
	}
	w.schedule(event.Name)
}

// addTree watches dir and its subdirectories. When schedule is set the
// regular files found are reported as well.
func (w *Watcher) addTree(dir string, schedule bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if w.excluded(path) {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return err
			}
			return nil
		}
		if schedule && d.Type().IsRegular() {
			w.schedule(path)
		}
		return nil
	})
}

// excluded reports whether path is the excluded directory or lies below it.
func (w *Watcher) excluded(path string) bool {
	if w.exclude == "" {
		return false
	}
	rel, err := filepath.Rel(w.exclude, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) schedule(path string) {
	if w.excluded(path) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.quiet)
		return
	}
	w.pending[path] = time.AfterFunc(w.quiet, func() { w.flush(path) })
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	if _, ok := w.pending[path]; w.closed || !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	w.logger.Debug("file settled", logging.String("path", path))
	w.sink(path)
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	if err := w.fsw.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		w.logger.Debug("close fsnotify watcher", logging.Error(err))
	}
}

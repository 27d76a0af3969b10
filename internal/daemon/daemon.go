package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tagbrain/internal/config"
	"tagbrain/internal/deps"
	"tagbrain/internal/logging"
	"tagbrain/internal/preflight"
	"tagbrain/internal/scanlog"
	"tagbrain/internal/watcher"
	"tagbrain/internal/workflow"
)

// Daemon coordinates background processing and enforces single-instance execution.
type Daemon struct {
	cfgMu   sync.RWMutex
	cfg     *config.Config
	cfgPath string

	logger   *slog.Logger
	scanLog  *scanlog.Store
	workflow *workflow.Manager
	api      *apiServer
	logPath  string

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	watching atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Watching     bool
	Workflow     workflow.StatusSummary
	LogDBPath    string
	LockFilePath string
	LogPath      string
	Dependencies []deps.Status
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies. cfgPath is where
// configuration updates received over the API are saved.
func New(cfg *config.Config, cfgPath string, store *scanlog.Store, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, scan log, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		cfgPath:  cfgPath,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		scanLog:  store,
		workflow: wf,
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, then launches the workflow manager, the
// watcher when enabled, and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tagbrain daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	cfg := d.config()
	if cfg.Scan.Watch {
		d.startWatcher(runCtx, cfg.Paths.SourceDir, cfg.Paths.TargetDir)
	}

	d.running.Store(true)
	d.logger.Info("tagbrain daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddr()),
		logging.Bool("watch", cfg.Scan.Watch),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) startWatcher(ctx context.Context, root, library string) {
	w, err := watcher.New(root, func(path string) {
		if _, err := d.workflow.EnqueueScan(path); err != nil {
			d.logger.Debug("watcher enqueue failed", logging.String("path", path), logging.Error(err))
		}
	}, d.logger, watcher.WithExcludedDir(library))
	if err != nil {
		logging.WarnWithContext(d.logger, "source watcher unavailable", "watcher_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "new files are only picked up by scan-all"),
		)
		return
	}
	d.wg.Add(1)
	d.watching.Store(true)
	go func() {
		defer d.wg.Done()
		defer d.watching.Store(false)
		if err := w.Run(ctx); err != nil {
			logging.WarnWithContext(d.logger, "source watcher stopped", "watcher_stopped",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that paths.source_dir exists"),
				logging.String(logging.FieldImpact, "new files are only picked up by scan-all"),
			)
		}
	}()
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next daemon start may report a stale lock"),
		)
	}
	d.running.Store(false)
	d.logger.Info("tagbrain daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and closes the scan log.
func (d *Daemon) Close() error {
	d.Stop()
	if d.scanLog != nil {
		return d.scanLog.Close()
	}
	return nil
}

// APIAddr returns the address the API server listens on.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status, including dependency and
// environment checks.
func (d *Daemon) Status(ctx context.Context) Status {
	cfg := d.config()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Watching:     d.watching.Load(),
		Workflow:     d.workflow.Status(),
		LogDBPath:    d.scanLog.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		Dependencies: preflight.CheckSystemDeps(cfg),
		Checks:       preflight.RunAll(ctx, cfg),
	}
}

func (d *Daemon) config() *config.Config {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	return d.cfg
}

// UpdateConfig validates cfg, saves it to the daemon's config path, and makes
// it current. Settings consumed at startup (clients, bind address, watcher)
// take effect on restart.
func (d *Daemon) UpdateConfig(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if d.cfgPath == "" {
		return errors.New("daemon has no config path to save to")
	}
	if err := cfg.Save(d.cfgPath); err != nil {
		return err
	}
	d.cfgMu.Lock()
	d.cfg = cfg
	d.cfgMu.Unlock()
	d.workflow.UpdateConfig(cfg)
	d.logger.Info("configuration updated",
		logging.String("path", d.cfgPath),
		logging.String(logging.FieldEventType, "config_updated"),
	)
	return nil
}

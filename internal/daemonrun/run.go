// Package daemonrun wires the daemon process together: logging, the shared
// MusicBrainz client, the scanner, the scan log, the workflow manager, and
// the daemon itself.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"tagbrain/internal/config"
	"tagbrain/internal/daemon"
	"tagbrain/internal/deps"
	"tagbrain/internal/logging"
	"tagbrain/internal/musicbrainz"
	"tagbrain/internal/notifications"
	"tagbrain/internal/queue"
	"tagbrain/internal/scanlog"
	"tagbrain/internal/scanner"
	"tagbrain/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// ConfigPath is where API configuration updates are saved.
	ConfigPath string
	// LogLevel overrides logging.level when set.
	LogLevel string
}

// Run starts the tagbrain daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logCfg := cfg.Clone()
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		logCfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String("run_id", uuid.NewString()))

	logDependencySnapshot(logger, cfg)
	pidPath := filepath.Join(cfg.Paths.DataDir, "tagbrain.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := scanlog.Open(cfg)
	if err != nil {
		logger.Error("open scan log", logging.Error(err))
		return err
	}

	// Every catalog request in the process shares this gate.
	gate := musicbrainz.NewGate(time.Duration(cfg.MusicBrainz.MinIntervalMS) * time.Millisecond)
	catalog, err := musicbrainz.New(cfg.MusicBrainz.BaseURL, cfg.MusicBrainz.UserAgent,
		musicbrainz.WithGate(gate),
		musicbrainz.WithSearchLimit(cfg.MusicBrainz.SearchLimit),
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("musicbrainz client: %w", err)
	}
	logger.Debug("musicbrainz client ready",
		logging.String("base_url", cfg.MusicBrainz.BaseURL),
		logging.Duration("min_interval", gate.Interval()),
	)
	scan, err := scanner.New(cfg, catalog, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("scanner: %w", err)
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, queue.New(), scan, store, logger, notifier)

	d, err := daemon.New(cfg, opts.ConfigPath, store, manager, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that no other daemon is running and api_bind is free"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("tagbrain daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("acoustid_key_present", strings.TrimSpace(cfg.AcoustID.APIKey) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("watch", cfg.Scan.Watch),
		logging.String("source_dir", cfg.Paths.SourceDir),
		logging.String("target_dir", cfg.Paths.TargetDir),
	}
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logging.WarnWithContext(logger, "required binaries missing", "dependency_missing",
			logging.String("missing", strings.Join(missing, ", ")),
			logging.String(logging.FieldErrorHint, "install chromaprint (fpcalc) or set scan.fpcalc_binary"),
			logging.String(logging.FieldImpact, "every scan falls back to title search"),
		)
	}
}

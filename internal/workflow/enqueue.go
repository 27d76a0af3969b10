package workflow

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"tagbrain/internal/logging"
	"tagbrain/internal/queue"
	"tagbrain/internal/services"
)

// EnqueueScan queues path for identification.
func (m *Manager) EnqueueScan(path string) (queue.Task, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return queue.Task{}, services.Wrap(services.ErrValidation, "workflow", "enqueue scan", "path is required", nil)
	}
	return m.queue.Enqueue(queue.Scan(path)), nil
}

// EnqueueFix queues a manual fix. kind must be KindFix or KindFixFailed.
func (m *Manager) EnqueueFix(kind queue.Kind, path, releaseID, recordingID string) (queue.Task, error) {
	path = strings.TrimSpace(path)
	releaseID = strings.TrimSpace(releaseID)
	recordingID = strings.TrimSpace(recordingID)
	if path == "" || releaseID == "" || recordingID == "" {
		return queue.Task{}, services.Wrap(services.ErrValidation, "workflow", "enqueue fix", "path, release id, and recording id are required", nil)
	}
	var task queue.Task
	switch kind {
	case queue.KindFix:
		task = queue.Fix(path, releaseID, recordingID)
	case queue.KindFixFailed:
		task = queue.FixFailed(path, releaseID, recordingID)
	default:
		return queue.Task{}, services.Wrap(services.ErrValidation, "workflow", "enqueue fix", "unsupported task kind "+string(kind), nil)
	}
	return m.queue.Enqueue(task), nil
}

// ClearQueue drops pending tasks. The running task is unaffected.
func (m *Manager) ClearQueue() int {
	return m.queue.Clear()
}

// ScanAll walks the source directory and queues every regular file. When the
// target directory lives inside the source directory it is not descended.
func (m *Manager) ScanAll(ctx context.Context) (int, error) {
	cfg := m.config()
	root := cfg.Paths.SourceDir
	target := filepath.Clean(cfg.Paths.TargetDir)
	logger := logging.WithContext(ctx, m.logger)

	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.WarnWithContext(logger, "skipping unreadable path during scan-all", "scan_all_walk_error",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check file permissions under source_dir"),
				logging.String(logging.FieldImpact, "files below this path are not queued"),
			)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && filepath.Clean(path) == target {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		m.queue.Enqueue(queue.Scan(path))
		count++
		return nil
	})
	if err != nil {
		return count, services.Wrap(services.ErrConfiguration, "workflow", "scan all", "walk source directory", err)
	}
	logger.Info("scan-all queued files",
		logging.String("source_dir", root),
		logging.Int("count", count),
		logging.String(logging.FieldEventType, "scan_all_queued"),
	)
	return count, nil
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"tagbrain/internal/logging"
	"tagbrain/internal/queue"
	"tagbrain/internal/scanner"
	"tagbrain/internal/services"
)

func (m *Manager) runTask(ctx context.Context, task queue.Task) {
	correlationID := uuid.NewString()
	ctx = services.WithTask(ctx, task.ID, correlationID)
	logger := logging.WithContext(ctx, m.logger).With(
		logging.String("task_kind", string(task.Kind)),
		logging.String("path", task.Path),
		logging.Int("retry_count", task.RetryCount),
	)

	var (
		result *scanner.Result
		err    error
	)
	switch task.Kind {
	case queue.KindScan:
		if ext := filepath.Ext(task.Path); !m.config().ExtensionAllowed(ext) {
			logger.Info("skipping file with unsupported extension",
				logging.String("extension", ext),
				logging.String(logging.FieldEventType, "scan_skipped"),
			)
			return
		}
		logger.Info("scan started", logging.String(logging.FieldEventType, "scan_started"))
		result, err = m.processor.Scan(ctx, task.Path)
	case queue.KindFix, queue.KindFixFailed:
		logger.Info("fix started",
			logging.String("release_id", task.ReleaseID),
			logging.String("recording_id", task.RecordingID),
			logging.String(logging.FieldEventType, "fix_started"),
		)
		result, err = m.processor.Fix(ctx, scanner.FixRequest{
			Path:        task.Path,
			ReleaseID:   task.ReleaseID,
			RecordingID: task.RecordingID,
			Move:        task.Kind == queue.KindFix,
		})
	default:
		err = services.Wrap(services.ErrValidation, "workflow", "dispatch", fmt.Sprintf("unknown task kind %q", task.Kind), nil)
	}

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, task abandoned")
			return
		}
		m.handleFailure(ctx, logger, task, correlationID, err)
		return
	}
	m.handleSuccess(ctx, logger, task, correlationID, result)
}

func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, task queue.Task, correlationID string, taskErr error) {
	m.setLastError(taskErr)
	if task.Retryable() && task.RetryCount < maxRetries {
		retry := m.queue.Enqueue(task.Retry())
		logging.WarnWithContext(logger, "task failed; requeued for retry", "task_retry",
			logging.Error(taskErr),
			logging.ErrorKind(taskErr),
			logging.Bool("transient", services.Retryable(taskErr)),
			logging.Int("next_retry_count", retry.RetryCount),
			logging.String(logging.FieldErrorHint, failureHint(taskErr)),
			logging.String(logging.FieldImpact, "the file will be processed once more"),
		)
		return
	}

	logging.ErrorWithContext(logger, "task failed", "task_failed",
		logging.Error(taskErr),
		logging.ErrorKind(taskErr),
		logging.Alert("task_failure"),
		logging.String(logging.FieldErrorHint, failureHint(taskErr)),
	)
	m.recordFailure(ctx, logger, task, correlationID, taskErr)
	m.notifyFailure(ctx, logger, task, taskErr)
}

func (m *Manager) handleSuccess(ctx context.Context, logger *slog.Logger, task queue.Task, correlationID string, result *scanner.Result) {
	if result == nil {
		return
	}
	logger.Info("task completed",
		logging.String("target", result.Target),
		logging.String("strategy", string(result.Strategy)),
		logging.Float64("acoustid_score", result.AcoustIDScore),
		logging.Float64("match_score", result.MatchScore),
		logging.String(logging.FieldEventType, "task_completed"),
	)
	m.recordSuccess(ctx, logger, task, correlationID, result)
	m.notifySuccess(ctx, logger, task, result)
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrNoTitleTag):
		return "add a title tag or fix the file manually with release and recording ids"
	case errors.Is(err, services.ErrNoMatchFound), errors.Is(err, services.ErrNoMatch):
		return "use fix-failed with explicit release and recording ids"
	case errors.Is(err, services.ErrAlreadyExists):
		return "enable scan.overwrite or remove the existing library file"
	case errors.Is(err, services.ErrExternalTool):
		return "check that fpcalc is installed and the file is a readable audio file"
	case errors.Is(err, services.ErrCatalogRequest):
		return "check network access to AcoustID and MusicBrainz"
	case errors.Is(err, services.ErrIncompleteMetadata):
		return "the release lacks artist, album, or title; choose another release with fix"
	}
	return "check logs for details"
}

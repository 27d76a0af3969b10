package workflow

import (
	"context"
	"errors"
	"log/slog"

	"tagbrain/internal/logging"
	"tagbrain/internal/notifications"
	"tagbrain/internal/queue"
	"tagbrain/internal/scanlog"
	"tagbrain/internal/scanner"
)

func entryType(task queue.Task) scanlog.Type {
	if task.Kind == queue.KindScan {
		return scanlog.TypeScan
	}
	return scanlog.TypeFix
}

func (m *Manager) recordSuccess(ctx context.Context, logger *slog.Logger, task queue.Task, correlationID string, result *scanner.Result) {
	oldMD := result.OldMetadata
	newMD := result.NewMetadata
	retries := task.RetryCount
	entry := scanlog.Entry{
		Type:          entryType(task),
		Success:       true,
		Message:       result.Message(),
		OldMetadata:   &oldMD,
		NewMetadata:   &newMD,
		SourcePath:    result.Source,
		TargetPath:    result.Target,
		RetryCount:    &retries,
		CorrelationID: correlationID,
	}
	if result.Strategy == scanner.StrategyAcoustID {
		score := result.AcoustIDScore
		entry.AcoustIDScore = &score
	}
	if entry.SourcePath == "" {
		entry.SourcePath = task.Path
	}
	m.record(ctx, logger, entry)
}

func (m *Manager) recordFailure(ctx context.Context, logger *slog.Logger, task queue.Task, correlationID string, taskErr error) {
	retries := task.RetryCount
	m.record(ctx, logger, scanlog.Entry{
		Type:          entryType(task),
		Success:       false,
		Message:       taskErr.Error(),
		SourcePath:    task.Path,
		RetryCount:    &retries,
		CorrelationID: correlationID,
	})
}

func (m *Manager) record(ctx context.Context, logger *slog.Logger, entry scanlog.Entry) {
	if m.recorder == nil {
		return
	}
	if _, err := m.recorder.Insert(ctx, entry); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not record task outcome")
			return
		}
		logging.WarnWithContext(logger, "failed to record task outcome", "scan_log_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check scan log database access"),
			logging.String(logging.FieldImpact, "the outcome will be missing from the scan log"),
		)
	}
}

func (m *Manager) notifySuccess(ctx context.Context, logger *slog.Logger, task queue.Task, result *scanner.Result) {
	event := notifications.EventScanCompleted
	if task.Kind != queue.KindScan {
		event = notifications.EventFixCompleted
	}
	m.publish(ctx, logger, event, notifications.Payload{
		"artist": result.NewMetadata.Artist,
		"title":  result.NewMetadata.Title,
		"source": result.Source,
		"target": result.Target,
	})
}

func (m *Manager) notifyFailure(ctx context.Context, logger *slog.Logger, task queue.Task, taskErr error) {
	event := notifications.EventScanFailed
	if task.Kind != queue.KindScan {
		event = notifications.EventFixFailed
	}
	m.publish(ctx, logger, event, notifications.Payload{
		"source": task.Path,
		"error":  taskErr,
	})
}

func (m *Manager) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send notification")
		} else {
			logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
		}
	}
}

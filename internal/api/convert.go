package api

import (
	"time"

	"tagbrain/internal/queue"
	"tagbrain/internal/scanlog"
	"tagbrain/internal/workflow"
)

// FromTask converts a queue task into its transport form.
func FromTask(task queue.Task) Task {
	return Task{
		ID:          task.ID,
		Kind:        string(task.Kind),
		Path:        task.Path,
		ReleaseID:   task.ReleaseID,
		RecordingID: task.RecordingID,
		RetryCount:  task.RetryCount,
		EnqueuedAt:  formatTime(task.EnqueuedAt),
	}
}

// FromQueueInfo converts a workflow queue snapshot.
func FromQueueInfo(info workflow.QueueInfo) QueueResponse {
	tasks := make([]Task, 0, len(info.Tasks))
	for _, task := range info.Tasks {
		tasks = append(tasks, FromTask(task))
	}
	return QueueResponse{Tasks: tasks, RunningCount: info.RunningCount}
}

// FromEntry converts a scan-log row.
func FromEntry(entry scanlog.Entry) LogEntry {
	return LogEntry{
		ID:            entry.ID,
		Type:          entry.Type.String(),
		CreatedAt:     formatTime(entry.CreatedAt),
		Success:       entry.Success,
		Message:       entry.Message,
		OldMetadata:   entry.OldMetadata,
		NewMetadata:   entry.NewMetadata,
		SourcePath:    entry.SourcePath,
		TargetPath:    entry.TargetPath,
		AcoustIDScore: entry.AcoustIDScore,
		RetryCount:    entry.RetryCount,
		CorrelationID: entry.CorrelationID,
	}
}

// FromEntries converts a slice of scan-log rows, never returning nil.
func FromEntries(entries []scanlog.Entry) []LogEntry {
	out := make([]LogEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry))
	}
	return out
}

// ParseTime parses a timestamp produced by this package.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

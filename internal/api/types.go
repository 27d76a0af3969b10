package api

import (
	"tagbrain/internal/config"
	"tagbrain/internal/deps"
	"tagbrain/internal/metadata"
	"tagbrain/internal/preflight"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ScanRequest asks the daemon to scan one file.
type ScanRequest struct {
	Path string `json:"path"`
}

// FixRequest re-tags a library file as the given recording and release.
type FixRequest struct {
	TargetPath  string `json:"target_path"`
	ReleaseID   string `json:"release_id"`
	RecordingID string `json:"recording_id"`
}

// FixFailedRequest files a source that failed to scan.
type FixFailedRequest struct {
	SourcePath  string `json:"source_path"`
	ReleaseID   string `json:"release_id"`
	RecordingID string `json:"recording_id"`
}

// Task is a queued unit of work.
type Task struct {
	ID          uint64 `json:"id"`
	Kind        string `json:"kind"`
	Path        string `json:"path"`
	ReleaseID   string `json:"release_id,omitempty"`
	RecordingID string `json:"recording_id,omitempty"`
	RetryCount  int    `json:"retry_count"`
	EnqueuedAt  string `json:"enqueued_at,omitempty"`
}

// TaskResponse wraps a single queued task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// QueueResponse lists pending tasks in run order.
type QueueResponse struct {
	Tasks        []Task `json:"tasks"`
	RunningCount int    `json:"running_count"`
}

// ScanAllResponse reports how many files were queued.
type ScanAllResponse struct {
	Queued int `json:"queued"`
}

// ClearResponse reports how many rows or tasks were removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// LogEntry is one scan-log row.
type LogEntry struct {
	ID            int64              `json:"id"`
	Type          string             `json:"type"`
	CreatedAt     string             `json:"created_at"`
	Success       bool               `json:"success"`
	Message       string             `json:"message,omitempty"`
	OldMetadata   *metadata.Metadata `json:"old_metadata,omitempty"`
	NewMetadata   *metadata.Metadata `json:"new_metadata,omitempty"`
	SourcePath    string             `json:"source_path"`
	TargetPath    string             `json:"target_path,omitempty"`
	AcoustIDScore *float64           `json:"acoustid_score,omitempty"`
	RetryCount    *int               `json:"retry_count,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty"`
}

// LogsResponse is a page of the scan log.
type LogsResponse struct {
	Entries []LogEntry `json:"entries"`
	Total   int        `json:"total"`
}

// ConfigResponse carries the daemon configuration. The API token is never
// returned.
type ConfigResponse struct {
	Path   string        `json:"path"`
	Config config.Config `json:"config"`
}

// StatusResponse aggregates daemon runtime information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	LockPath     string             `json:"lock_path"`
	LogDBPath    string             `json:"log_db_path"`
	LogPath      string             `json:"log_path"`
	Watching     bool               `json:"watching"`
	Pending      int                `json:"pending"`
	RunningCount int                `json:"running_count"`
	LastError    string             `json:"last_error,omitempty"`
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

package queue

import "time"

// Kind identifies what a task does.
type Kind string

const (
	// KindScan identifies a file and publishes it into the library.
	KindScan Kind = "scan"
	// KindFix re-tags a library file with chosen ids and moves it.
	KindFix Kind = "fix"
	// KindFixFailed copies a failed source file into the library with chosen ids.
	KindFixFailed Kind = "fix_failed"
)

// Task is one unit of queued work.
type Task struct {
	ID          uint64    `json:"id"`
	Kind        Kind      `json:"kind"`
	Path        string    `json:"path"`
	ReleaseID   string    `json:"release_id,omitempty"`
	RecordingID string    `json:"recording_id,omitempty"`
	RetryCount  int       `json:"retry_count"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Scan returns a scan task for path.
func Scan(path string) Task {
	return Task{Kind: KindScan, Path: path}
}

// Fix returns a fix task that moves the library file at path.
func Fix(path, releaseID, recordingID string) Task {
	return Task{Kind: KindFix, Path: path, ReleaseID: releaseID, RecordingID: recordingID}
}

// FixFailed returns a task that files a previously failed source.
func FixFailed(path, releaseID, recordingID string) Task {
	return Task{Kind: KindFixFailed, Path: path, ReleaseID: releaseID, RecordingID: recordingID}
}

// Retryable reports whether a failure of this task may be retried.
// Only scans are retried.
func (t Task) Retryable() bool {
	return t.Kind == KindScan
}

// Retry returns a copy of t with the retry count incremented.
func (t Task) Retry() Task {
	t.RetryCount++
	return t
}

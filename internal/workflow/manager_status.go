package workflow

import (
	"tagbrain/internal/queue"
)

// QueueInfo is a snapshot of pending work.
type QueueInfo struct {
	Tasks        []queue.Task `json:"tasks"`
	RunningCount int          `json:"running_count"`
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running      bool
	Pending      int
	RunningCount int
	LastError    string
}

// QueueInfo returns pending tasks in run order and the number in flight.
func (m *Manager) QueueInfo() QueueInfo {
	return QueueInfo{
		Tasks:        m.queue.Snapshot(),
		RunningCount: m.RunningCount(),
	}
}

// RunningCount returns the number of tasks currently executing.
func (m *Manager) RunningCount() int {
	return int(m.inFlight.Load())
}

// Status returns the latest workflow information.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	m.mu.RUnlock()

	summary := StatusSummary{
		Running:      running,
		Pending:      m.queue.Len(),
		RunningCount: m.RunningCount(),
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

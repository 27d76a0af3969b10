package workflow

import (
	"context"
	"errors"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.processor == nil {
		m.mu.Unlock()
		return errors.New("workflow processor not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.dispatch(runCtx)
	return nil
}

// Stop terminates background processing and waits for the in-flight task.
// Pending tasks stay queued.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) dispatch(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.queue.Signal():
			m.drain(ctx)
		}
	}
}

// drain runs tasks until the queue is empty. The gate is acquired before a
// task is dequeued so the newest task at that moment is the one that runs.
func (m *Manager) drain(ctx context.Context) {
	for {
		if err := m.gate.Acquire(ctx, 1); err != nil {
			return
		}
		task, ok := m.queue.Dequeue()
		if !ok {
			m.gate.Release(1)
			return
		}
		m.inFlight.Add(1)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer m.gate.Release(1)
			defer m.inFlight.Add(-1)
			m.runTask(ctx, task)
		}()
	}
}

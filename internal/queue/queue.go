package queue

import (
	"sync"
	"time"
)

// Queue is a mutex-protected LIFO list of tasks.
type Queue struct {
	mu     sync.Mutex
	tasks  []Task
	nextID uint64
	signal chan struct{}
	now    func() time.Time
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Enqueue appends task and signals availability. Tasks without an id are
// assigned one; requeued tasks keep theirs. The stored task is returned.
func (q *Queue) Enqueue(task Task) Task {
	q.mu.Lock()
	if task.ID == 0 {
		q.nextID++
		task.ID = q.nextID
	}
	task.EnqueuedAt = q.now()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return task
}

// Dequeue removes and returns the most recently enqueued task.
func (q *Queue) Dequeue() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	if n == 0 {
		return Task{}, false
	}
	task := q.tasks[n-1]
	q.tasks[n-1] = Task{}
	q.tasks = q.tasks[:n-1]
	return task, true
}

// Clear drops every pending task and returns how many were removed. A task
// already dequeued is unaffected.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	q.tasks = nil
	return n
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Snapshot returns the pending tasks in the order they will run.
func (q *Queue) Snapshot() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, len(q.tasks))
	for i, task := range q.tasks {
		out[len(q.tasks)-1-i] = task
	}
	return out
}

// Signal fires after an Enqueue. It may fire once for several enqueues.
func (q *Queue) Signal() <-chan struct{} {
	return q.signal
}

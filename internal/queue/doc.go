// Package queue holds pending scan and fix tasks in memory.
//
// The queue is a stack: Dequeue returns the most recently enqueued task.
// Newly added files and retries therefore run before an older backlog. The
// queue is not persisted; pending tasks are lost when the daemon stops and a
// scan-all rebuilds them.
//
// Enqueue signals availability on a one-slot channel. Signals coalesce, so a
// consumer must drain the queue after each wake-up rather than dequeue once
// per signal.
package queue

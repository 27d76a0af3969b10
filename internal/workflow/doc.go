// Package workflow drives queued tasks through the scanner.
//
// The Manager runs one dispatcher goroutine. It waits for the queue's
// signal, then drains the queue: for each task it first acquires a
// capacity-one admission gate, dequeues the newest task, and spawns a
// goroutine that holds the gate until the task finishes. Only one file is
// processed at a time, and the gate is released only after the task's
// outcome has been written to the scan log.
//
// A failed scan is pushed back onto the queue once with its retry count
// incremented. Because the queue is LIFO, the retry runs next. A second
// failure is terminal: it is recorded, and a notification is published when
// configured. Fix tasks are never retried.
package workflow

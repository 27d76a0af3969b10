// Package daemon coordinates the long-running tagbrain process.
//
// It wires configuration, the scan log, the workflow manager, and the
// source-directory watcher into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon serves the HTTP API the CLI talks to:
// queue control, scan-log paging, manual fixes, configuration read/write, and
// dependency health.
//
// Keep orchestration logic here: per-file work lives in scanner and
// dispatching lives in workflow.
package daemon

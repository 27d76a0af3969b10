// Package preflight provides readiness checks for the external tools,
// services, and filesystem paths tagbrain depends on.
//
// The daemon runs RunAll once at startup and logs failures as warnings, and
// GET /api/status returns the same results for "tagbrain status". Checks never
// block startup: a scan that hits a failing dependency fails on its own and is
// retried through the queue.
package preflight

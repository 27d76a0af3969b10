// Package logging assembles structured slog loggers and formatting helpers used
// across tagbrain.
//
// It owns the console and JSON handlers, tees output into a size-rotated log
// file, and exposes context-aware helpers so pipeline code can tag log lines
// with job IDs, stages, and correlation IDs. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging

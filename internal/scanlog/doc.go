// Package scanlog persists the outcome of every finished scan and fix job in
// a SQLite database.
//
// One row is written per terminal outcome: successes carry the before and
// after metadata snapshots and the lookup strategy, failures carry the error
// text and the source path so the file can be fixed by hand later. A scan
// that fails once and is retried writes nothing until its second attempt
// finishes.
package scanlog

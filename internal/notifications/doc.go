// Package notifications delivers scan outcomes via pluggable notifiers.
//
// The default implementation publishes to the ntfy topic URL configured in
// config.toml and degrades to a no-op when no topic is set. Per-event switches
// in the [notifications] section decide whether failures, successes, or both
// are pushed.
//
// Workflow code depends only on the Service interface.
package notifications

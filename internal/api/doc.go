// Package api defines the wire format of the daemon's HTTP API and a client
// for it.
//
// DTOs use snake_case JSON tags and RFC3339 timestamps with milliseconds.
// Converters translate queue tasks and scan-log entries into DTOs so the CLI
// renders them without importing daemon internals. Client wraps every route
// under /api and turns {"error": "..."} bodies into *Error values.
package api

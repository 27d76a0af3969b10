// Command tagbrain runs the auto-tagging daemon and talks to it over its
// HTTP API.
//
// `tagbrain daemon` starts the long-running process. Every other subcommand
// is a thin client: it loads the same configuration file to find the API
// bind address and token, then issues one request and renders the result.
package main

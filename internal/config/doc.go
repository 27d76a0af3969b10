// Package config loads, normalizes, validates, and saves tagbrain
// configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ACOUST_ID_API_KEY. The Config type centralizes every knob the daemon and CLI
// need: library directories, the release scoring policy, catalog endpoints,
// and logging.
//
// Components receive a *Config at construction time; nothing reads a global.
// Persist edits with Save rather than writing the file by hand.
package config

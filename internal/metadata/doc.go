// Package metadata defines the flat record written to audio tags and used for
// path derivation, builds it from catalog responses, and maps it to and from
// tag-store keys.
package metadata

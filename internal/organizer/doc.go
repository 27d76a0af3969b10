// Package organizer derives library paths from tag metadata and publishes
// tagged copies into the library.
//
// Publishing is transactional: the source is copied to a temporary file in
// the target directory, tags are written to that copy, and the copy is renamed
// into place. A failed tag write removes the temporary file, so a partially
// written track is never visible at its final path.
package organizer

// Package scanner runs the per-file identification pipeline.
//
// A scan reads the file's current tags, fingerprints the audio, and looks the
// fingerprint up on AcoustID. When that fails for any reason the title tag is
// searched on MusicBrainz instead. The candidate recordings are scored, the
// winning release is fetched in full, and the rebuilt metadata is published
// into the library. Fix runs the same publish step for a recording and release
// chosen by hand.
package scanner

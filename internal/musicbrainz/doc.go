// Package musicbrainz is the catalog client: recording and release lookups,
// free-text recording search, and front cover retrieval from the Cover Art
// Archive.
//
// MusicBrainz allows one request per second per client. Every catalog call
// passes through a single Gate shared by the whole process, so concurrent
// callers are serialized here rather than at their call sites. Cover art
// requests go to a different host and bypass the gate.
package musicbrainz

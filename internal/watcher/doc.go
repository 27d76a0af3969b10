// Package watcher reports files that arrive under the source directory.
//
// A Watcher subscribes to fsnotify events for the root and every directory
// beneath it. Each created or written file starts a quiet-period timer that
// is reset by further events on the same path; when the timer fires and the
// path is still a regular file it is handed to the sink. A directory that
// is created or moved in is watched and walked so its existing files are
// reported too.
package watcher

// Package matcher scores candidate (recording, release) pairs against the tags
// already present in a file and selects the best one.
//
// Each pair earns a weighted sum of four terms: how early the release country
// appears in the preferred-country list, how early the release-group type
// appears in the preferred-type list, and how similar the album and title tags
// are to the release-group and recording titles. Similarities below their
// configured threshold contribute nothing.
package matcher

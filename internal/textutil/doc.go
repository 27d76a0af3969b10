// Package textutil provides text helpers shared by the matcher and the
// organizer: edit-distance similarity for comparing tag values against
// catalog titles, and filename sanitization for library paths.
package textutil

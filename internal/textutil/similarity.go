package textutil

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// NormalizedSimilarity returns 1 - levenshtein(a, b) / max(len(a), len(b)),
// counting runes. Two empty strings are identical and score 1.
func NormalizedSimilarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

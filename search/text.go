package search

import "unicode/utf8"

// Truncation limits, in runes, applied where each kind of text enters a prompt.
const (
	// VectorDescriptionLimit bounds a match description in a vector snippet.
	VectorDescriptionLimit = 15

	// FactDescriptionLimit bounds a target description when a graph fact is built.
	FactDescriptionLimit = 40

	// GraphDescriptionLimit bounds a fact description in a graph snippet.
	GraphDescriptionLimit = 100
)

// Snippet caps.
const (
	MaxVectorSnippets = 10
	MaxGraphSnippets  = 20
)

// truncateRunes returns the first limit runes of s.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// orNA returns s, or "N/A" when s is empty.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

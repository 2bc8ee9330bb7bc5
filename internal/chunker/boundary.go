package chunker

import (
	"regexp"
	"unicode/utf8"
)

// Boundary is one tier of the boundary search
type Boundary struct {
	Name    string
	Pattern *regexp.Regexp
}

var (
	// ParagraphBoundary matches one or more blank-line breaks
	ParagraphBoundary = Boundary{
		Name:    "paragraph",
		Pattern: regexp.MustCompile(`\n\n+`),
	}

	// SentenceBoundary matches CJK terminal punctuation or newlines, or
	// Latin terminal punctuation followed by whitespace
	SentenceBoundary = Boundary{
		Name:    "sentence",
		Pattern: regexp.MustCompile(`[。！？\n\r]+|[.!?\n\r]+\s`),
	}
)

// DefaultBoundaries lists the tiers in priority order
var DefaultBoundaries = []Boundary{ParagraphBoundary, SentenceBoundary}

// findBoundary moves a proposed chunk end back to the end of the last
// boundary match inside [max(start, end-window), end).
//
// Tiers are tried in order and the first tier with any match wins, so a
// paragraph break early in the window beats a sentence break right at the
// end. If no tier matches, end is returned unchanged.
func findBoundary(runes []rune, start, end, window int, tiers []Boundary) int {
	_, pos := searchTiers(runes, start, end, window, tiers)
	return pos
}

// searchTiers returns the index of the winning tier (-1 if none) and the
// adjusted end position
func searchTiers(runes []rune, start, end, window int, tiers []Boundary) (int, int) {
	searchStart := max(start, end-window)
	if searchStart >= end {
		return -1, end
	}
	segment := string(runes[searchStart:end])

	for i, tier := range tiers {
		matches := tier.Pattern.FindAllStringIndex(segment, -1)
		if len(matches) == 0 {
			continue
		}
		last := matches[len(matches)-1]
		// Matches are byte offsets into segment; convert back to runes.
		return i, searchStart + utf8.RuneCountInString(segment[:last[1]])
	}

	return -1, end
}

// BoundaryTier reports which tier would end a chunk proposed to span
// [start, end) of text, and where. It returns "" and end when no tier
// matches.
func BoundaryTier(text string, start, end, window int, tiers []Boundary) (string, int) {
	runes := []rune(text)
	end = min(end, len(runes))
	start = max(start, 0)

	i, pos := searchTiers(runes, start, end, window, tiers)
	if i < 0 {
		return "", end
	}
	return tiers[i].Name, pos
}

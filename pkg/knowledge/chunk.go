package knowledge

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Split cuts text into chunks of at most size runes, each sharing about
// overlap runes with the previous one. Cuts prefer whitespace boundaries.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := min(start+size, len(runes))
		if end < len(runes) {
			if cut := lastSpace(runes, start+overlap+1, end); cut > 0 {
				end = cut
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		// Start the next chunk on a word.
		if s := nextWord(runes, next, end); s > start {
			next = s
		}
		start = next
	}
	return chunks
}

// lastSpace returns the index of the last whitespace in runes[lo:hi], or -1.
func lastSpace(runes []rune, lo, hi int) int {
	for i := hi; i > lo; i-- {
		if i < len(runes) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// nextWord returns the first word start at or after i (bounded by limit).
func nextWord(runes []rune, i, limit int) int {
	if i > 0 && !unicode.IsSpace(runes[i-1]) {
		for i < limit && !unicode.IsSpace(runes[i]) {
			i++
		}
	}
	for i < limit && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

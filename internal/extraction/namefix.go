package extraction

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/minuted/internal/roster"
)

var wordPattern = regexp.MustCompile(`[A-Za-z]+`)

// CorrectNames rewrites transcript tokens that are near-miss spellings of
// roster names (speech-to-text output mangles names more than anything
// else). A token is corrected when it is within a small edit distance of a
// roster name token; the threshold scales with token length so common short
// words are never rewritten.
func CorrectNames(transcript string, entries []roster.Entry) string {
	if len(entries) == 0 {
		return transcript
	}

	// Candidate tokens: each name plus its individual words.
	var candidates []string
	for _, entry := range entries {
		for _, tok := range strings.Fields(entry.Name) {
			if len(tok) >= 4 {
				candidates = append(candidates, tok)
			}
		}
	}
	if len(candidates) == 0 {
		return transcript
	}

	return wordPattern.ReplaceAllStringFunc(transcript, func(word string) string {
		lower := strings.ToLower(word)
		for _, cand := range candidates {
			candLower := strings.ToLower(cand)
			if lower == candLower {
				return word
			}
			// Same initial guards against rewriting unrelated words
			// that happen to sit near a name in edit distance.
			if lower[0] != candLower[0] {
				continue
			}
			if levenshtein(lower, candLower) <= editTolerance(len(lower)) {
				return cand
			}
		}
		return word
	})
}

// editTolerance: distance 1 for words of 5-7 letters, 2 for longer ones,
// and no correction below 5 letters.
func editTolerance(length int) int {
	switch {
	case length >= 8:
		return 2
	case length >= 5:
		return 1
	default:
		return 0
	}
}

// levenshtein computes the edit distance between two short strings.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

package game

import (
	"math"
	"strings"
	"time"
	"unicode"
)

// Scoring constants. A correct guess earns the base value plus a time bonus
// that decays linearly from the full bonus at t=0 to zero at round expiry.
const (
	basePoints   = 100
	timeBonusMax = 100
)

// Score judges a submitted guess against the canonical title/artist of the
// active song and computes its point value. Pure function: the room state
// machine supplies elapsed and window, nothing here touches shared state.
//
// Correctness requires BOTH the normalized title and the normalized artist to
// match their canonical values, either exactly or within a small edit-distance
// tolerance for typos. A wrong guess always scores 0.
func Score(submittedTitle, submittedArtist, canonicalTitle, canonicalArtist string, elapsed, window time.Duration) (bool, int) {
	if !fuzzyMatch(submittedTitle, canonicalTitle) || !fuzzyMatch(submittedArtist, canonicalArtist) {
		return false, 0
	}

	if elapsed < 0 {
		elapsed = 0
	}
	bonus := 0
	if window > 0 && elapsed < window {
		frac := 1 - float64(elapsed)/float64(window)
		bonus = int(math.Round(timeBonusMax * frac))
	}
	return true, basePoints + bonus
}

// fuzzyMatch reports whether submitted matches canonical after normalization,
// tolerating a Levenshtein distance of up to 10% of the canonical length
// (minimum 1).
func fuzzyMatch(submitted, canonical string) bool {
	s := normalizeAnswer(submitted)
	c := normalizeAnswer(canonical)
	if c == "" {
		// A song with no canonical value on one field cannot be matched on it.
		return s == ""
	}
	if s == c {
		return true
	}
	limit := len([]rune(c)) / 10
	if limit < 1 {
		limit = 1
	}
	return levenshtein(s, c) <= limit
}

// normalizeAnswer case-folds, trims, strips punctuation and collapses internal
// whitespace so "  Bohemian  Rhapsody! " compares equal to "bohemian rhapsody".
func normalizeAnswer(s string) string {
	var b strings.Builder
	lastSpace := true // leading whitespace is dropped
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// punctuation and symbols are stripped outright
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// levenshtein computes the edit distance between two strings by rune, using
// the classic two-row dynamic programming form.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

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
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

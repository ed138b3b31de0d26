package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bohemian Rhapsody", "bohemian rhapsody"},
		{"  Bohemian   Rhapsody! ", "bohemian rhapsody"},
		{"DON'T STOP ME NOW", "dont stop me now"},
		{"(I Can't Get No) Satisfaction", "i cant get no satisfaction"},
		{"...", ""},
		{"", ""},
		{"AC/DC", "acdc"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, normalizeAnswer(c.in), "input %q", c.in)
	}
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("queen", "queen"))
	assert.Equal(t, 1, levenshtein("quen", "queen"))
	assert.Equal(t, 1, levenshtein("queeen", "queen"))
	assert.Equal(t, 2, levenshtein("quine", "queen"))
	assert.Equal(t, 5, levenshtein("", "queen"))
}

func TestScoreExactMatch(t *testing.T) {
	ok, pts := Score("Bohemian Rhapsody", "Queen", "Bohemian Rhapsody", "Queen", 0, 30*time.Second)
	assert.True(t, ok)
	assert.Equal(t, basePoints+timeBonusMax, pts)
}

func TestScoreToleratesSmallTypos(t *testing.T) {
	// "bohemian rhapsody" is 17 runes => tolerance 1 per field.
	ok, pts := Score("Bohemian Rapsody", "Queen", "Bohemian Rhapsody", "Queen", 5*time.Second, 30*time.Second)
	assert.True(t, ok)
	assert.Greater(t, pts, basePoints)

	// Artist typo within tolerance too.
	ok, _ = Score("Bohemian Rhapsody", "Qeen", "Bohemian Rhapsody", "Queen", 5*time.Second, 30*time.Second)
	assert.True(t, ok)
}

func TestScoreRejectsWrongGuesses(t *testing.T) {
	// Both fields must match; a correct title with a wrong artist scores 0.
	ok, pts := Score("Bohemian Rhapsody", "ABBA", "Bohemian Rhapsody", "Queen", time.Second, 30*time.Second)
	assert.False(t, ok)
	assert.Zero(t, pts)

	ok, pts = Score("Radio Ga Ga", "Queen", "Bohemian Rhapsody", "Queen", time.Second, 30*time.Second)
	assert.False(t, ok)
	assert.Zero(t, pts)

	// Too many edits.
	ok, _ = Score("Bohemiaan Rapsodyy", "Queen", "Bohemian Rhapsody", "Queen", time.Second, 30*time.Second)
	assert.False(t, ok)
}

func TestScoreTimeDecayMonotonic(t *testing.T) {
	window := 30 * time.Second
	last := basePoints + timeBonusMax + 1
	for elapsed := time.Duration(0); elapsed <= window; elapsed += time.Second {
		_, pts := Score("Bohemian Rhapsody", "Queen", "Bohemian Rhapsody", "Queen", elapsed, window)
		assert.LessOrEqual(t, pts, last, "points must not increase with elapsed time")
		last = pts
	}

	// At (or past) expiry only the base value remains.
	_, pts := Score("Bohemian Rhapsody", "Queen", "Bohemian Rhapsody", "Queen", window, window)
	assert.Equal(t, basePoints, pts)
	_, pts = Score("Bohemian Rhapsody", "Queen", "Bohemian Rhapsody", "Queen", 2*window, window)
	assert.Equal(t, basePoints, pts)
}

func TestScoreClampsNegativeElapsed(t *testing.T) {
	_, pts := Score("Bohemian Rhapsody", "Queen", "Bohemian Rhapsody", "Queen", -time.Second, 30*time.Second)
	assert.Equal(t, basePoints+timeBonusMax, pts)
}

func TestScoreMidWindowSubmission(t *testing.T) {
	// A correct guess at 2000ms of a 15000ms window earns more than base-only.
	ok, pts := Score("Bohemian Rhapsody", "Queen", "Bohemian Rhapsody", "Queen", 2000*time.Millisecond, 15000*time.Millisecond)
	assert.True(t, ok)
	assert.Greater(t, pts, basePoints)
}

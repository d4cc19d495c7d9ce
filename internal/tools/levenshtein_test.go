package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinIdenticalStrings(t *testing.T) {
	assert.Equal(t, 0, levenshtein("hello", "hello"))
}

func TestLevenshteinEmptyStrings(t *testing.T) {
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("abc", ""))
	assert.Equal(t, 0, levenshtein("", ""))
}

func TestLevenshteinSingleEdit(t *testing.T) {
	assert.Equal(t, 1, levenshtein("cat", "cats"))
	assert.Equal(t, 1, levenshtein("cat", "bat"))
	assert.Equal(t, 1, levenshtein("cats", "cat"))
}

func TestLevenshteinDistinctStrings(t *testing.T) {
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}

func TestClosestLinePicksNearest(t *testing.T) {
	lines := []string{"func foo() {", "  return bar", "}"}
	line, text, ok := closestLine(lines, "  return baz")
	assert.True(t, ok)
	assert.Equal(t, 2, line)
	assert.Equal(t, "  return bar", text)
}

func TestClosestLineEmptyFile(t *testing.T) {
	_, _, ok := closestLine(nil, "anything")
	assert.False(t, ok)
}

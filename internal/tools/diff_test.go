package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnifiedDiffShowsChangedLine(t *testing.T) {
	out := unifiedDiff("f.txt", "alpha\nbeta\ngamma\n", "alpha\nBETA\ngamma\n")
	assert.Contains(t, out, "-beta")
	assert.Contains(t, out, "+BETA")
}

func TestUnifiedDiffNoChangesIsEmpty(t *testing.T) {
	out := unifiedDiff("f.txt", "same\n", "same\n")
	assert.Empty(t, out)
}

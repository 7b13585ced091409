package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreviewShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "revenue grew", preview("revenue grew"))
}

func TestPreviewLongTextTruncated(t *testing.T) {
	long := strings.Repeat("a", sourcePreviewLength+50)
	got := preview(long)
	assert.Len(t, got, sourcePreviewLength+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestPreviewExactLengthUnchanged(t *testing.T) {
	exact := strings.Repeat("b", sourcePreviewLength)
	assert.Equal(t, exact, preview(exact))
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["ingest"])
	assert.True(t, names["query"])
	assert.True(t, names["stats"])
}

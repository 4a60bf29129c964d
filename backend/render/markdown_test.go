package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownHTML(t *testing.T) {
	m := NewMarkdown()

	out, err := m.HTML("# Intro\n\nSome **bold** text.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n~~old~~\n")
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>Intro</h1>")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<del>old</del>")
}

func TestMarkdownCodeBlock(t *testing.T) {
	out, err := NewMarkdown().HTML("```go\nfmt.Println(\"hi\")\n```\n")
	require.NoError(t, err)

	assert.Contains(t, out, "<pre")
	assert.Contains(t, out, "Println")
}

func TestMarkdownEmpty(t *testing.T) {
	out, err := NewMarkdown().HTML("")
	require.NoError(t, err)
	assert.Empty(t, out)
}

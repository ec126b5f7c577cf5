package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestMarkdown(t *testing.T) {
	out := Markdown("Consider adding a **nil check** here.", 80)
	assert.Contains(t, out, "nil check")
	assert.Contains(t, out, "Consider adding")
}

func TestMarkdown_NarrowWidthClamped(t *testing.T) {
	out := Markdown("word", 0)
	assert.Contains(t, out, "word")
}

func TestDiffHunk(t *testing.T) {
	hunk := "@@ -1,3 +1,3 @@\n context line\n-old value\n+new value"
	out := DiffHunk(hunk, "internal/x.go")
	lines := strings.Split(out, "\n")

	assert.Equal(t, []string{
		"internal/x.go",
		"@@ -1,3 +1,3 @@",
		"context line",
		"old value",
		"new value",
	}, lines)
}

func TestDiffHunk_NoPath(t *testing.T) {
	out := DiffHunk("+added", "")
	assert.Equal(t, "added", out)
}

func TestWordWrap(t *testing.T) {
	out := wordWrap("one two three four", 9)
	assert.Equal(t, "one two\nthree\nfour", out)
	assert.Equal(t, "short", wordWrap("short", 0))
}

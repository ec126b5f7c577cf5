// Package render formats GitHub comment bodies and diff hunks for the
// terminal.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	diffAddedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	diffRemovedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	diffHunkHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	diffContextStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	diffFileHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244")).
				Bold(true)
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Markdown renders markdown text with glamour for terminal display.
// Falls back to plain wordWrap if glamour fails.
func Markdown(markdown string, width int) string {
	if width < 10 {
		width = 10
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return wordWrap(markdown, width)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return wordWrap(markdown, width)
	}
	return strings.TrimSpace(out)
}

// DiffHunk styles a diff hunk line by line. Added and removed lines lose
// their +/- marker and are colored instead; context lines lose their
// leading space; @@ headers are kept verbatim. A non-empty path is shown
// as a header above the hunk.
func DiffHunk(hunk, path string) string {
	var b strings.Builder
	if path != "" {
		b.WriteString(diffFileHeaderStyle.Render(path))
		b.WriteString("\n")
	}
	for i, line := range strings.Split(hunk, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case strings.HasPrefix(line, "@@"):
			b.WriteString(diffHunkHeaderStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(diffAddedStyle.Render(line[1:]))
		case strings.HasPrefix(line, "-"):
			b.WriteString(diffRemovedStyle.Render(line[1:]))
		case strings.HasPrefix(line, " "):
			b.WriteString(diffContextStyle.Render(line[1:]))
		default:
			b.WriteString(diffContextStyle.Render(line))
		}
	}
	return b.String()
}

// Dim renders s in the muted hint color.
func Dim(s string) string {
	return dimStyle.Render(s)
}

// wordWrap wraps text to fit within the given width.
func wordWrap(s string, width int) string {
	if width <= 0 {
		return s
	}

	var result strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if lipgloss.Width(line) <= width {
			if result.Len() > 0 {
				result.WriteString("\n")
			}
			result.WriteString(line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if currentLine == "" {
				currentLine = word
			} else if lipgloss.Width(currentLine+" "+word) <= width {
				currentLine += " " + word
			} else {
				if result.Len() > 0 {
					result.WriteString("\n")
				}
				result.WriteString(currentLine)
				currentLine = word
			}
		}
		if currentLine != "" {
			if result.Len() > 0 {
				result.WriteString("\n")
			}
			result.WriteString(currentLine)
		}
	}
	return result.String()
}

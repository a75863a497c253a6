// ABOUTME: Markdown building and rendering for reports using glamour
// ABOUTME: Renders styled output on a terminal and passes raw markdown through for pipes
package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/term"
)

// RenderMarkdown renders markdown content for terminal display.
// When raw is true, returns content unchanged (for piping).
// Falls back to raw content on rendering errors.
func RenderMarkdown(content string, raw bool) string {
	if raw {
		return content
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(terminalWidth()),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}

	return rendered
}

// StdoutIsTerminal reports whether stdout is attached to a terminal
func StdoutIsTerminal() bool {
	return term.IsTerminal(os.Stdout.Fd())
}

func terminalWidth() int {
	width, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// MarkdownTable builds a GitHub-flavored table. Pipes in cells are escaped.
func MarkdownTable(headers []string, rows [][]string) string {
	var b strings.Builder

	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(c, "|", `\|`))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

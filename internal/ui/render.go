// ABOUTME: Complex rendering functions for headers, sections, and detail views
// ABOUTME: Provides consistent formatting for structured CLI output
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	HeaderMinWidth = 30
	HeaderMaxWidth = 72
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorAccent).
			Padding(0, 2).
			Align(lipgloss.Center)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorInfo)

	labelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	valueStyle = lipgloss.NewStyle()
)

// RenderHeader returns a styled header box with the given title
func RenderHeader(title string) string {
	return headerStyle.Width(getHeaderWidth()).Render(title)
}

// getHeaderWidth clamps half the terminal width into [HeaderMinWidth, HeaderMaxWidth]
func getHeaderWidth() int {
	width := terminalWidth() / 2
	return max(HeaderMinWidth, min(width, HeaderMaxWidth))
}

// RenderSection returns a styled section header with optional count
// Pass -1 for count to omit the count display
func RenderSection(title string, count int) string {
	if count >= 0 {
		return sectionStyle.Render(fmt.Sprintf("%s (%d)", title, count))
	}
	return sectionStyle.Render(title)
}

// RenderDetail returns a label: value pair with consistent formatting
func RenderDetail(label, value string) string {
	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

// RenderCounts renders one "label  count" line per entry, sorted by label,
// with labels padded to a common width
func RenderCounts(counts map[string]int) []string {
	labels := make([]string, 0, len(counts))
	width := 0
	for label := range counts {
		labels = append(labels, label)
		width = max(width, len(label))
	}
	sort.Strings(labels)

	lines := make([]string, 0, len(labels))
	for _, label := range labels {
		lines = append(lines, fmt.Sprintf("%s  %s", labelStyle.Render(padRight(label, width)), Bold(fmt.Sprint(counts[label]))))
	}
	return lines
}

// Indent returns the string with the specified indentation level (2 spaces per level)
func Indent(s string, level int) string {
	prefix := strings.Repeat("  ", level)
	return prefix + s
}

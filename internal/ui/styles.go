// ABOUTME: Color palette, status marks, and NO_COLOR handling for pluginsync output
// ABOUTME: Maps run outcomes (succeeded, failed, skipped) to a symbol and color
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic color definitions
var (
	ColorSuccess = lipgloss.Color("#22c55e") // Green
	ColorError   = lipgloss.Color("#ef4444") // Red
	ColorWarning = lipgloss.Color("#eab308") // Yellow
	ColorInfo    = lipgloss.Color("#06b6d4") // Cyan
	ColorMuted   = lipgloss.Color("#6b7280") // Gray
	ColorAccent  = lipgloss.Color("#f46800") // Orange, headers
	ColorSkipped = lipgloss.Color("#94a3b8") // Slate
)

// Symbol definitions
var (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
	SymbolBullet  = "•"
	SymbolSkip    = "○"
)

// statusMark is how one outcome status is drawn
type statusMark struct {
	symbol string
	color  lipgloss.Color
}

// Keyed by the status names recorded in reports and audit events
var statusMarks = map[string]statusMark{
	"succeeded": {SymbolSuccess, ColorSuccess},
	"failed":    {SymbolError, ColorError},
	"skipped":   {SymbolSkip, ColorSkipped},
}

// StatusSymbol renders the colored symbol for an outcome status.
// Unknown statuses get a muted bullet.
func StatusSymbol(status string) string {
	mark, ok := statusMarks[status]
	if !ok {
		return Muted(SymbolBullet)
	}
	return lipgloss.NewStyle().Foreground(mark.color).Render(mark.symbol)
}

func init() {
	initColorProfile()
}

func initColorProfile() {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

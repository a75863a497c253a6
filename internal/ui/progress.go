// ABOUTME: Progress tracker for reconcile runs
// ABOUTME: Renders a progress bar with a sliding window of recent plugin outcomes
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ItemStatus is the terminal state of one processed plugin
type ItemStatus string

const (
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
	ItemSkipped   ItemStatus = "skipped"
)

// TrackerConfig configures a new ProgressTracker
type TrackerConfig struct {
	Title  string // e.g. "Installing"
	Total  int    // Items in the run
	Window int    // Number of recent items to show in sliding window
}

// ItemResult represents the outcome of processing a single item
type ItemResult struct {
	Name   string
	Status ItemStatus
	Detail string // error text or skip reason
}

// ProgressTracker follows one reconcile run.
// Safe for concurrent use by worker callbacks.
type ProgressTracker struct {
	title         string
	total         int
	window        int
	completed     int
	failed        int
	skipped       int
	items         []ItemResult
	linesRendered int
	mu            sync.Mutex
}

// NewProgressTracker creates a new progress tracker with the given configuration
func NewProgressTracker(config TrackerConfig) *ProgressTracker {
	window := config.Window
	if window <= 0 {
		window = 5
	}

	return &ProgressTracker{
		title:  config.Title,
		total:  config.Total,
		window: window,
		items:  make([]ItemResult, 0, window),
	}
}

// RecordResult records the result of processing an item
func (t *ProgressTracker) RecordResult(result ItemResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recordLocked(result)
}

func (t *ProgressTracker) recordLocked(result ItemResult) {
	t.completed++
	switch result.Status {
	case ItemFailed:
		t.failed++
	case ItemSkipped:
		t.skipped++
	}

	t.items = append(t.items, result)
	if len(t.items) > t.window {
		t.items = t.items[len(t.items)-t.window:]
	}
}

// Done reports whether every item has been recorded
func (t *ProgressTracker) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed >= t.total
}

// Counts returns completed, failed and skipped totals
func (t *ProgressTracker) Counts() (completed, failed, skipped int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed, t.failed, t.skipped
}

// Rendering constants
const (
	barWidth  = 20
	barFilled = "━"
	barEmpty  = "░"
)

// renderProgressBar renders a progress bar of the given width
func renderProgressBar(completed, total, width int) string {
	if total == 0 {
		return strings.Repeat(barEmpty, width)
	}

	filled := min((completed*width)/total, width)
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}

// renderSummaryLine renders "Installing   ━━━━━░░░░ 12/44 (3 skipped, 1 failed)"
func (t *ProgressTracker) renderSummaryLine() string {
	bar := renderProgressBar(t.completed, t.total, barWidth)
	count := fmt.Sprintf("%d/%d", t.completed, t.total)

	status := ""
	if t.completed >= t.total {
		if t.failed == 0 {
			status = " " + Success(SymbolSuccess)
		} else {
			status = " " + Error(SymbolError)
		}
	}

	var extra []string
	if t.skipped > 0 {
		extra = append(extra, fmt.Sprintf("%d skipped", t.skipped))
	}
	if t.failed > 0 {
		extra = append(extra, fmt.Sprintf("%d failed", t.failed))
	}
	suffix := ""
	if len(extra) > 0 {
		suffix = " (" + strings.Join(extra, ", ") + ")"
	}

	return fmt.Sprintf("%s %s %s%s%s", padRight(t.title, 12), bar, count, status, Muted(suffix))
}

// renderItemLine renders a single item result line
func renderItemLine(item ItemResult) string {
	detail := ""
	if item.Detail != "" {
		detail = fmt.Sprintf(" (%s)", item.Detail)
	}
	return fmt.Sprintf("  %s %s%s", StatusSymbol(string(item.Status)), item.Name, Muted(detail))
}

// padRight pads a string to the given width with spaces
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Update records result and writes it to w.
// On a TTY the bar and window are redrawn in place; otherwise one line per item is streamed.
func (t *ProgressTracker) Update(w io.Writer, result ItemResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recordLocked(result)

	if isTerminal(w) {
		t.renderTTY(w)
		return
	}

	detail := ""
	if result.Detail != "" {
		detail = fmt.Sprintf(" (%s)", result.Detail)
	}
	fmt.Fprintf(w, "[%d/%d] %s %s%s\n", t.completed, t.total, statusWord(result.Status), result.Name, detail)
}

func statusWord(status ItemStatus) string {
	switch status {
	case ItemSucceeded:
		return "ok"
	case ItemFailed:
		return "FAILED"
	default:
		return "skip"
	}
}

// Render outputs the current progress state
func (t *ProgressTracker) Render(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if isTerminal(w) {
		t.renderTTY(w)
		return
	}
	fmt.Fprintln(w, stripStyles(t.renderSummaryLine()))
}

// renderTTY renders with ANSI cursor control for in-place updates
func (t *ProgressTracker) renderTTY(w io.Writer) {
	if t.linesRendered > 0 {
		fmt.Fprintf(w, "\033[%dA", t.linesRendered)
	}

	fmt.Fprintf(w, "\033[K%s\n", t.renderSummaryLine())
	lines := 1

	for _, item := range t.items {
		fmt.Fprintf(w, "\033[K%s\n", renderItemLine(item))
		lines++
	}

	t.linesRendered = lines
}

// Finish clears the sliding window and leaves the summary bar on a TTY
func (t *ProgressTracker) Finish(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !isTerminal(w) {
		return
	}

	if extra := t.linesRendered - 1; extra > 0 {
		fmt.Fprintf(w, "\033[%dA", extra)
		for i := 0; i < extra; i++ {
			fmt.Fprintf(w, "\033[K\n")
		}
		fmt.Fprintf(w, "\033[%dA", extra)
	}

	t.linesRendered = 1
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func stripStyles(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ABOUTME: Package documentation for the ui package
// ABOUTME: Describes the purpose and usage patterns for terminal styling

// Package ui provides consistent terminal styling and output formatting
// for pluginsync commands using lipgloss.
//
// Usage:
//   - Use Print* functions for standalone messages: ui.PrintSuccess("Installed 3 plugins")
//   - Use inline helpers for composing output: fmt.Println(ui.Bold("Target:"), ui.Muted(url))
//   - Use ProgressTracker to follow a reconcile run item by item
//   - Respects NO_COLOR environment variable for accessibility
package ui

// ABOUTME: History command for viewing the audit trail of plugin operations
// ABOUTME: Displays recorded install/uninstall outcomes with filtering options
package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pluginsync/pluginsync/internal/events"
	"github.com/pluginsync/pluginsync/internal/ui"
	"github.com/spf13/cobra"
)

var (
	historyPlugin    string
	historyOperation string
	historyStatus    string
	historyRun       string
	historySince     string
	historyLimit     int
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: ui.GroupInspect,
	Short:   "View plugin operation history",
	Long: `Display recorded plugin operations, newest first.

Examples:
  pluginsync history                          # Show recent operations
  pluginsync history --limit 50
  pluginsync history --operation uninstall
  pluginsync history --status failed --since 24h
  pluginsync history --plugin grafana-clock-panel`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyPlugin, "plugin", "", "Filter by plugin id")
	historyCmd.Flags().StringVar(&historyOperation, "operation", "", "Filter by operation (install/uninstall)")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by status (succeeded/failed/skipped)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Filter by run id")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Show events since duration (e.g., 24h, 7d)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of events to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	writer, err := eventsWriter()
	if err != nil {
		return fmt.Errorf("failed to open events log: %w", err)
	}

	if _, err := os.Stat(writer.Path()); os.IsNotExist(err) {
		ui.PrintInfo("No operations recorded yet.")
		return nil
	}

	var since time.Time
	if historySince != "" {
		d, err := parseDuration(historySince)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		since = time.Now().Add(-d)
	}

	list, err := writer.Query(events.EventFilters{
		Plugin:    historyPlugin,
		Operation: historyOperation,
		RunID:     historyRun,
		Status:    historyStatus,
		Since:     since,
		Limit:     historyLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}

	if len(list) == 0 {
		ui.PrintInfo("No operations found matching the filters.")
		return nil
	}

	ui.PrintSuccess(fmt.Sprintf("Found %d operation(s):", len(list)))
	fmt.Println()

	for _, event := range list {
		displayEvent(event)
	}
	return nil
}

func displayEvent(event *events.OperationEvent) {
	name := event.Plugin
	if event.Version != "" {
		name += "@" + event.Version
	}

	fmt.Printf("%s  %s  %s %s\n",
		ui.StatusSymbol(event.Status),
		event.Timestamp.Local().Format("2006-01-02 15:04:05"),
		ui.Info(fmt.Sprintf("%-9s", strings.ToUpper(event.Operation))),
		name,
	)

	switch {
	case event.Error != "":
		fmt.Println(ui.Indent(ui.Error(event.Error), 2))
	case event.Reason != "":
		fmt.Println(ui.Indent(ui.Muted(event.Reason), 2))
	}
	fmt.Println(ui.Indent(ui.Muted(fmt.Sprintf("run %s on %s", shortRunID(event.RunID), event.Target)), 2))
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// parseDuration parses duration strings like "24h", "7d", "30m"
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		var d int
		if _, err := fmt.Sscanf(days, "%d", &d); err != nil {
			return 0, err
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

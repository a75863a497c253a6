// ABOUTME: Metrics command collecting allow-listed process metrics per plugin
// ABOUTME: Defaults to every installed plugin when no ids are given
package commands

import (
	"fmt"
	"strings"

	"github.com/pluginsync/pluginsync/internal/metrics"
	"github.com/pluginsync/pluginsync/internal/plugin"
	"github.com/pluginsync/pluginsync/internal/ui"
	"github.com/spf13/cobra"
)

var metricsNames []string

var metricsCmd = &cobra.Command{
	Use:     "metrics [plugin-id...]",
	GroupID: ui.GroupInspect,
	Short:   "Collect process metrics from plugins",
	Long: `Fetch each plugin's metrics endpoint and print the allow-listed values.

Plugins that fail to answer are listed with no values.`,
	Example: `  pluginsync metrics
  pluginsync metrics grafana-clock-panel --names process_open_fds`,
	RunE: runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().StringSliceVar(&metricsNames, "names", nil, "Metric names to keep (default from config, else process_open_fds,process_max_fds)")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := newClient()
	if err != nil {
		return err
	}

	ids := args
	if len(ids) == 0 {
		items, err := newRegistryView(client).List(ctx)
		if err != nil {
			return err
		}
		ids = plugin.IDs(items)
	}

	names := metricsNames
	if len(names) == 0 {
		names = cfg.Metrics.Names
	}

	collected := metrics.NewAggregator(client, names, logger).Collect(ctx, ids)

	for _, id := range ids {
		fmt.Printf("%s = %s\n", id, formatValues(collected[id]))
	}
	return ctx.Err()
}

func formatValues(values []metrics.NamedValue) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%s=%s", v.Name, v.Value)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ABOUTME: Report command summarising the plugins installed on the target
// ABOUTME: Prints counts per type-signature group and saves the full list as JSON
package commands

import (
	"fmt"
	"sort"

	"github.com/pluginsync/pluginsync/internal/plugin"
	"github.com/pluginsync/pluginsync/internal/registry"
	"github.com/pluginsync/pluginsync/internal/ui"
	"github.com/spf13/cobra"
)

var (
	reportOutput   string
	reportMarkdown bool
)

var reportCmd = &cobra.Command{
	Use:     "report",
	GroupID: ui.GroupInspect,
	Short:   "Summarise installed plugins and save them as JSON",
	Long: `List the plugins installed on the target, grouped by type and signature.

The full list is written to --output in the same shape the target returns,
so it can be fed back with "install --source dump".`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "external-plugins-all.json", "Write the installed list here (empty to skip)")
	reportCmd.Flags().BoolVar(&reportMarkdown, "markdown", false, "Print the report as markdown")
}

func runReport(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	view := newRegistryView(client)

	records, err := view.Records(cmd.Context())
	if err != nil {
		return err
	}
	items := registry.Descriptors(records)

	summary := registry.Summarize(items)
	view.LogSummary(summary)

	if reportMarkdown {
		md := buildMarkdownReport(client.URL(), summary, items)
		fmt.Print(ui.RenderMarkdown(md, !ui.StdoutIsTerminal()))
	} else {
		printSummary(client.URL(), summary)
	}

	if reportOutput != "" {
		if err := registry.WriteJSON(reportOutput, records); err != nil {
			return err
		}
		if !reportMarkdown {
			fmt.Println()
			ui.PrintSuccess(fmt.Sprintf("Wrote %d plugins to %s", len(items), reportOutput))
		}
	}
	return nil
}

func printSummary(target string, s registry.Summary) {
	fmt.Println(ui.RenderHeader("Installed Plugins"))
	fmt.Println()
	fmt.Println(ui.RenderDetail("Target", target))
	fmt.Println(ui.RenderDetail("Total", fmt.Sprint(s.Total)))
	fmt.Println(ui.RenderDetail("Internal", fmt.Sprint(s.Internal)))
	fmt.Println(ui.RenderDetail("Non-core", fmt.Sprint(s.External)))
	fmt.Println()
	fmt.Println(ui.RenderSection("By type and signature", len(s.ByKey)))
	for _, line := range ui.RenderCounts(groupCounts(s)) {
		fmt.Println(ui.Indent(line, 1))
	}
}

func groupCounts(s registry.Summary) map[string]int {
	counts := make(map[string]int, len(s.ByKey))
	for k, n := range s.ByKey {
		counts[k.String()] = n
	}
	return counts
}

func buildMarkdownReport(target string, s registry.Summary, items []plugin.Descriptor) string {
	md := fmt.Sprintf("# Installed plugins\n\nTarget: `%s`\n\n", target)
	md += fmt.Sprintf("- Total: **%d**\n- Internal: **%d**\n- Non-core: **%d**\n\n", s.Total, s.Internal, s.External)

	md += "## By type and signature\n\n"
	var groupRows [][]string
	for _, k := range registry.SortedKeys(s.ByKey) {
		groupRows = append(groupRows, []string{k.String(), fmt.Sprint(s.ByKey[k])})
	}
	md += ui.MarkdownTable([]string{"Group", "Count"}, groupRows) + "\n"

	_, external := registry.Partition(items)
	sorted := append([]plugin.Descriptor(nil), external...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	md += "## Non-core plugins\n\n"
	var rows [][]string
	for _, d := range sorted {
		version, _ := d.VersionString()
		rows = append(rows, []string{d.ID, d.DisplayName(), d.TypeString(), d.SignatureString(), version})
	}
	md += ui.MarkdownTable([]string{"ID", "Name", "Type", "Signature", "Version"}, rows)
	return md
}

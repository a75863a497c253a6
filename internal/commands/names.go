// ABOUTME: Names command printing the selected plugin ids as one comma-joined list
// ABOUTME: Feeds build tooling that takes a plugin list in a single argument
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pluginsync/pluginsync/internal/filter"
	"github.com/pluginsync/pluginsync/internal/plugin"
	"github.com/pluginsync/pluginsync/internal/ui"
	"github.com/spf13/cobra"
)

var (
	namesOpts   syncOptions
	namesOutput string
)

var namesCmd = &cobra.Command{
	Use:     "names",
	GroupID: ui.GroupInspect,
	Short:   "Print selected plugin ids as a comma-separated list",
	Long: `Load candidates from a source, apply the include/exclude rules, and print
the remaining plugin ids joined by commas, in source order.

With --output the list is written as a JSON string instead.`,
	Example: `  pluginsync names --source manifest --file plugin-build-manifest.json
  pluginsync names --source manifest --file plugin-build-manifest.json -o plugin-build-manifest-v3.json`,
	Args: cobra.NoArgs,
	RunE: runNames,
}

func init() {
	rootCmd.AddCommand(namesCmd)
	flags := namesCmd.Flags()
	flags.StringVar(&namesOpts.source, "source", "", "Candidate source: catalog, manifest, dump, or installed (default: manifest if configured, else catalog)")
	flags.StringVar(&namesOpts.file, "file", "", "Manifest or dump file for --source manifest|dump")
	flags.StringArrayVar(&namesOpts.include, "include", nil, "Keep only plugins matching attr=v1,v2 (repeatable)")
	flags.StringArrayVar(&namesOpts.exclude, "exclude", nil, "Drop plugins matching attr=v1,v2 (repeatable)")
	flags.StringVarP(&namesOutput, "output", "o", "", "Write the list to this file as a JSON string")
}

func runNames(cmd *cobra.Command, args []string) error {
	namesOpts.applyConfigDefaults(cmd)

	var view installedSource
	if namesOpts.source == sourceInstalled {
		client, err := newClient()
		if err != nil {
			return err
		}
		view = newRegistryView(client)
	}

	items, origin, err := namesOpts.candidates(cmd.Context(), view)
	if err != nil {
		return err
	}
	include, exclude, err := namesOpts.rules()
	if err != nil {
		return err
	}
	selected := filter.Apply(items, include, exclude)
	logger.Debug("plugin names selected", "source", origin, "fetched", len(items), "selected", len(selected))

	list := joinIDs(selected)
	if namesOutput == "" {
		fmt.Println(list)
		return nil
	}

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode plugin names: %w", err)
	}
	if err := os.WriteFile(namesOutput, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", namesOutput, err)
	}
	ui.PrintSuccess(fmt.Sprintf("Wrote %d plugin names to %s", len(selected), namesOutput))
	return nil
}

func joinIDs(items []plugin.Descriptor) string {
	return strings.Join(plugin.IDs(items), ",")
}

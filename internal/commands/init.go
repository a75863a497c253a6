// ABOUTME: Init command writing the effective configuration to the config file
// ABOUTME: Captures the target from flags and GRAFANA_* variables for later runs
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/pluginsync/pluginsync/internal/config"
	"github.com/pluginsync/pluginsync/internal/ui"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file for the current target",
	Long: `Write the effective configuration to the config file: defaults, then any
existing GRAFANA_* variables, then --url and --token.

An existing file is left alone unless --force is given.`,
	Example: `  GRAFANA_URL=https://grafana.example.com pluginsync init
  pluginsync init --url http://localhost:3000 --token glsa_xxx --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := requireSetup(); err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", cfgPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	logger.Debug("configuration written", "path", cfgPath)

	ui.PrintSuccess(fmt.Sprintf("Wrote %s", cfgPath))
	fmt.Println(ui.Indent(ui.RenderDetail("Target", cfg.Target.URL), 1))
	return nil
}

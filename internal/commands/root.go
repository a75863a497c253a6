// ABOUTME: Root command and CLI initialization for pluginsync
// ABOUTME: Sets up cobra command structure, global flags, logging, and config loading
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pluginsync/pluginsync/internal/config"
	"github.com/pluginsync/pluginsync/internal/logging"
	"github.com/pluginsync/pluginsync/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	targetURL   string
	targetToken string

	// Populated by PersistentPreRunE before any RunE
	logger  *slog.Logger
	cfg     *config.Config
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "pluginsync",
	Short: "Reconcile the plugins installed on a Grafana instance",
	Long: `pluginsync drives a Grafana-compatible admin API to bring its installed
plugins in line with a desired set.

It can:
  - Install or uninstall plugins from a catalog, build manifest, or saved report
  - Narrow the set with include/exclude rules and random sampling
  - Report what is installed and collect per-plugin process metrics`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version for the root command
func SetVersion(version string) {
	rootCmd.Version = version
}

func init() {
	ui.SetupHelpTemplate(rootCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $PLUGINSYNC_HOME/config.yaml)")
	flags.StringVar(&targetURL, "url", "", "Target base URL (overrides config and GRAFANA_URL)")
	flags.StringVar(&targetToken, "token", "", "API token (overrides config and GRAFANA_TOKEN)")
	flags.BoolVarP(&config.YesFlag, "yes", "y", false, "Skip all prompts, use defaults")
	logging.RegisterLoggingFlags(flags)
}

// setup builds the logger and resolves configuration: file, then env, then flags
func setup(cmd *cobra.Command, args []string) error {
	var err error
	logger, err = logging.GetBaseLogger(cmd)
	if err != nil {
		return err
	}

	cfgPath = configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)

	if targetURL != "" {
		cfg.Target.URL = targetURL
	}
	if targetToken != "" {
		cfg.Target.Token = targetToken
	}

	logger.Debug("configuration loaded", "path", cfgPath, "target", cfg.Target.URL)
	return nil
}

// requireSetup guards helpers against use before PersistentPreRunE
func requireSetup() error {
	if cfg == nil || logger == nil {
		return fmt.Errorf("command not initialized")
	}
	return nil
}

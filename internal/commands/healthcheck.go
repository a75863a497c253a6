// ABOUTME: Healthcheck command printing the target's health payload
// ABOUTME: Exits non-zero when the target is unreachable or unhealthy
package commands

import (
	"fmt"
	"strings"

	"github.com/pluginsync/pluginsync/internal/ui"
	"github.com/spf13/cobra"
)

var healthcheckCmd = &cobra.Command{
	Use:     "healthcheck",
	GroupID: ui.GroupInspect,
	Short:   "Check that the target instance is reachable and healthy",
	Args:    cobra.NoArgs,
	RunE:    runHealthcheck,
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	payload, err := client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("%s is healthy", client.URL()))
	if body := strings.TrimSpace(payload); body != "" {
		ui.PrintMuted(body)
	}
	return nil
}

// ABOUTME: Shared construction of the admin API client and audit tracker
// ABOUTME: Every command reaches the target and the audit log through these helpers
package commands

import (
	"fmt"

	"github.com/pluginsync/pluginsync/internal/config"
	"github.com/pluginsync/pluginsync/internal/events"
	"github.com/pluginsync/pluginsync/internal/grafana"
	"github.com/pluginsync/pluginsync/internal/registry"
	"github.com/pluginsync/pluginsync/internal/ui"
)

func newClient() (*grafana.Client, error) {
	if err := requireSetup(); err != nil {
		return nil, err
	}

	user, password := cfg.Target.Credentials()
	return grafana.NewClient(grafana.Options{
		URL:      cfg.Target.URL,
		Token:    cfg.Target.Token,
		User:     user,
		Password: password,
		Timeout:  cfg.Target.Timeout,
	})
}

func newRegistryView(client *grafana.Client) *registry.View {
	return registry.NewView(client, logger)
}

// eventsWriter opens the audit log under the pluginsync home
func eventsWriter() (*events.JSONLWriter, error) {
	return events.NewJSONLWriter(config.EventsLogPath(config.MustHome()))
}

// newTracker returns an audit tracker. Failure to open the log disables
// auditing rather than failing the run.
func newTracker() *events.Tracker {
	writer, err := eventsWriter()
	if err != nil {
		logger.Debug("audit log unavailable", "error", err)
		ui.PrintWarning(fmt.Sprintf("Audit log unavailable, operations will not be recorded: %v", err))
		return events.NewTracker(nil, false)
	}
	return events.NewTracker(writer, true)
}

// ABOUTME: Source reading a previously written list of installed plugins
// ABOUTME: Lets one instance's recorded plugin set be replayed onto another
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pluginsync/pluginsync/internal/grafana"
	"github.com/pluginsync/pluginsync/internal/plugin"
)

// Dump reads the JSON array produced by the report command
type Dump struct {
	Path string
}

func (d *Dump) Describe() string {
	return "dump " + d.Path
}

// Fetch reads and decodes the dump file
func (d *Dump) Fetch(_ context.Context) ([]plugin.Descriptor, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin dump: %w", err)
	}

	var records []grafana.Plugin
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse plugin dump %s: %w", d.Path, err)
	}

	items := make([]plugin.Descriptor, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		items = append(items, r.Descriptor())
	}
	return items, nil
}

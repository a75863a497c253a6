// ABOUTME: Read-only view of the plugins installed on the target instance
// ABOUTME: Classifies installed plugins by type and signature for reporting
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pluginsync/pluginsync/internal/grafana"
	"github.com/pluginsync/pluginsync/internal/plugin"
)

// Lister is the part of the admin API the view needs
type Lister interface {
	ListPlugins(ctx context.Context) ([]grafana.Plugin, error)
}

// View queries and summarises installed plugins
type View struct {
	api    Lister
	logger *slog.Logger
}

// NewView creates a registry view over api
func NewView(api Lister, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &View{api: api, logger: logger}
}

// Records returns the installed plugins exactly as the target reports them
func (v *View) Records(ctx context.Context) ([]grafana.Plugin, error) {
	records, err := v.api.ListPlugins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed plugins: %w", err)
	}
	v.logger.Debug("listed installed plugins", "count", len(records))
	return records, nil
}

// List returns a snapshot of installed plugins. It is stale as soon as it returns.
func (v *View) List(ctx context.Context) ([]plugin.Descriptor, error) {
	records, err := v.Records(ctx)
	if err != nil {
		return nil, err
	}
	return Descriptors(records), nil
}

// Descriptors maps registry records onto descriptors, keeping their order
func Descriptors(records []grafana.Plugin) []plugin.Descriptor {
	items := make([]plugin.Descriptor, len(records))
	for i, r := range records {
		items[i] = r.Descriptor()
	}
	return items
}

// Key groups installed plugins for reporting
type Key struct {
	Type      string
	Signature string
}

func (k Key) String() string {
	return k.Type + "-" + k.Signature
}

// Classify counts plugins per (type, signature). Absent fields count as "unknown".
func Classify(items []plugin.Descriptor) map[Key]int {
	counts := make(map[Key]int)
	for _, d := range items {
		counts[Key{Type: d.TypeString(), Signature: d.SignatureString()}]++
	}
	return counts
}

// SortedKeys returns the keys of counts ordered by type then signature
func SortedKeys(counts map[Key]int) []Key {
	keys := make([]Key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].Signature < keys[j].Signature
	})
	return keys
}

// Partition splits items into core (internal signature) and external plugins,
// preserving order within each group
func Partition(items []plugin.Descriptor) (internal, external []plugin.Descriptor) {
	for _, d := range items {
		if d.IsInternal() {
			internal = append(internal, d)
		} else {
			external = append(external, d)
		}
	}
	return internal, external
}

// Versions maps plugin id to installed version for plugins reporting one
func Versions(items []plugin.Descriptor) map[string]string {
	versions := make(map[string]string, len(items))
	for _, d := range items {
		if v, ok := d.VersionString(); ok {
			versions[d.ID] = v
		}
	}
	return versions
}

// Summary is the aggregate logged and printed by the report command
type Summary struct {
	Total    int
	Internal int
	External int
	ByKey    map[Key]int
}

// Summarize computes totals and per-key counts
func Summarize(items []plugin.Descriptor) Summary {
	internal, external := Partition(items)
	return Summary{
		Total:    len(items),
		Internal: len(internal),
		External: len(external),
		ByKey:    Classify(items),
	}
}

// LogSummary writes the summary to the logger, one record per key
func (v *View) LogSummary(s Summary) {
	v.logger.Info("installed plugins", "total", s.Total, "internal", s.Internal, "external", s.External)
	for _, k := range SortedKeys(s.ByKey) {
		v.logger.Info("plugin group", "group", k.String(), "count", s.ByKey[k])
	}
}

// WriteJSON writes records as an indented JSON array. Records decoded from
// the target are written unchanged.
func WriteJSON(path string, records []grafana.Plugin) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode plugin list: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
